package web

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

func RoomInspector(view RoomView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <meta http-equiv="refresh" content="2"/>
    <title>Room `)
		b.WriteString(esc(view.RoomID))
		b.WriteString(`</title>
  </head>
  <body>
    <main class="shell">
      <header>
        <h1>Room `)
		b.WriteString(esc(view.RoomID))
		b.WriteString(`</h1>
        <dl>
          <dt>Clock</dt><dd>`)
		b.WriteString(i64toa(view.Clock))
		b.WriteString(`</dd>
          <dt>Page</dt><dd>`)
		b.WriteString(esc(view.Page))
		b.WriteString(`</dd>
          <dt>Day</dt><dd>`)
		b.WriteString(yesNo(view.IsDay))
		b.WriteString(`</dd>
          <dt>Winner</dt><dd>`)
		b.WriteString(esc(orDash(view.Winner)))
		b.WriteString(`</dd>
          <dt>Current action</dt><dd>`)
		b.WriteString(esc(orDash(view.ActualAction)))
		b.WriteString(`</dd>
          <dt>Next action</dt><dd>`)
		b.WriteString(esc(orDash(view.PendingAction)))
		if view.PendingAction != "" {
			b.WriteString(` in `)
			b.WriteString(i64toa(view.Countdown))
			b.WriteString(`ms`)
		}
		b.WriteString(`</dd>
          <dt>Roster</dt><dd>`)
		b.WriteString(esc(orDash(strings.Join(view.Roles, ", "))))
		b.WriteString(`</dd>
        </dl>
      </header>
      <section>
        <h2>Players (`)
		b.WriteString(itoa(len(view.Players)))
		b.WriteString(`)</h2>
        <table>
          <thead><tr><th>Name</th><th>State</th><th>Role</th><th>Alive</th><th>Ready</th><th>Admin</th><th>Position</th></tr></thead>
          <tbody>
`)
		for _, p := range view.Players {
			b.WriteString(`            <tr><td>`)
			b.WriteString(esc(p.Name))
			b.WriteString(`</td><td>`)
			b.WriteString(esc(p.State))
			b.WriteString(`</td><td>`)
			b.WriteString(esc(orDash(p.Role)))
			b.WriteString(`</td><td>`)
			b.WriteString(yesNo(p.Alive))
			b.WriteString(`</td><td>`)
			b.WriteString(yesNo(p.Ready))
			b.WriteString(`</td><td>`)
			b.WriteString(yesNo(p.Admin))
			b.WriteString(`</td><td>`)
			b.WriteString(esc(p.Position))
			b.WriteString("</td></tr>\n")
		}
		b.WriteString(`          </tbody>
        </table>
      </section>
      <section>
        <h2>Chat</h2>
        <ul>
`)
		for _, m := range view.Messages {
			b.WriteString(`          <li><strong>`)
			b.WriteString(esc(m.Sender))
			b.WriteString(`</strong> [`)
			b.WriteString(esc(m.Category))
			b.WriteString(`] `)
			b.WriteString(esc(m.Content))
			b.WriteString("</li>\n")
		}
		b.WriteString(`        </ul>
      </section>
    </main>
  </body>
</html>
`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}
