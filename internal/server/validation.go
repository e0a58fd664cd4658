package server

import (
	"sync"

	"werewolf-party/internal/record"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	maxRoomIDLength = 64
	maxRosterSize   = 20
)

var validatorOnce sync.Once

func registerValidators() {
	validatorOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = engine.RegisterValidation("roomid", func(fl validator.FieldLevel) bool {
			return validRoomID(fl.Field().String())
		})
		_ = engine.RegisterValidation("rolename", func(fl validator.FieldLevel) bool {
			return record.RoleName(fl.Field().String()).Valid()
		})
	})
}

// validRoomID accepts ids made of letters, digits, '-' and '_'.
func validRoomID(id string) bool {
	if id == "" || len(id) > maxRoomIDLength {
		return false
	}
	for _, r := range id {
		if r >= 'a' && r <= 'z' {
			continue
		}
		if r >= 'A' && r <= 'Z' {
			continue
		}
		if r >= '0' && r <= '9' {
			continue
		}
		if r == '-' || r == '_' {
			continue
		}
		return false
	}
	return true
}
