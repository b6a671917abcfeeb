package app

import (
	"dbdock/internal/secret"
)

// OpenTerminal starts the engine's interactive CLI for a connection in
// the embedded terminal panel.
func (a *App) OpenTerminal(profileID string) error {
	a.touch()
	profile, err := a.profiles.GetProfile(profileID)
	if err != nil {
		return err
	}

	password := ""
	if pw, err := a.secrets.Get(secret.ProfileKey(profileID)); err == nil && pw != nil {
		password = string(pw)
	}
	return a.term.Open(profile, password)
}

// TerminalWrite sends input from xterm.js to the PTY.
func (a *App) TerminalWrite(data string) error {
	return a.term.Write(data)
}

// TerminalResize resizes the PTY.
func (a *App) TerminalResize(cols, rows int) error {
	return a.term.Resize(uint16(cols), uint16(rows))
}

// TerminalRunning reports whether a shell session is active.
func (a *App) TerminalRunning() bool {
	return a.term.IsRunning()
}

// CloseTerminal ends the current shell session.
func (a *App) CloseTerminal() {
	a.term.Close()
}
