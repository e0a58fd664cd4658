package web

import (
	"strconv"
	"strings"

	"github.com/a-h/templ"
)

func itoa(value int) string {
	return strconv.Itoa(value)
}

func i64toa(value int64) string {
	return strconv.FormatInt(value, 10)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func esc(value string) string {
	return templ.EscapeString(value)
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
