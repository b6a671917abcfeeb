package terminal

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/creack/pty"

	"dbdock/internal/domain"
)

// Manager runs the engine's interactive CLI (psql, mysql, mongosh,
// sqlite3) in a PTY so the app can embed a real database shell.
type Manager struct {
	mu      sync.Mutex
	ptmx    *os.File
	cmd     *exec.Cmd
	onData  func(data []byte)
	onExit  func()
	running bool
	// Size to apply when the next session starts.
	pendingCols uint16
	pendingRows uint16
	shellPath   string // user's full login shell PATH (resolved once)
}

// cliFor names the interactive client binary for an engine.
func cliFor(engine domain.Engine) (string, error) {
	switch engine {
	case domain.EnginePostgres:
		return "psql", nil
	case domain.EngineMySQL, domain.EngineMariaDB:
		return "mysql", nil
	case domain.EngineSQLite:
		return "sqlite3", nil
	case domain.EngineMongoDB:
		return "mongosh", nil
	default:
		return "", fmt.Errorf("no shell client for engine %q", engine)
	}
}

// resolveBinary finds the absolute path for a client binary.
// macOS GUI apps (like Wails) don't inherit the shell's $PATH,
// so we probe common installation paths as a fallback.
func resolveBinary(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	if p, err := exec.LookPath(name); err == nil {
		return p
	}
	candidates := []string{
		filepath.Join("/opt/homebrew/bin", name),          // Apple Silicon Homebrew
		filepath.Join("/usr/local/bin", name),             // Intel Homebrew / manual installs
		filepath.Join("/run/current-system/sw/bin", name), // NixOS
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, ".local/bin", name),
			filepath.Join(home, ".nix-profile/bin", name),
		)
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	// Last resort: return the name as-is and let exec.Command fail with a clear error
	return name
}

// resolveShellPath gets the user's full login shell PATH.
// macOS GUI apps (Wails) inherit a minimal PATH; this runs the user's
// login shell to capture the complete PATH so the client binaries are
// found where the user installed them.
func resolveShellPath() string {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/zsh"
	}
	out, err := exec.Command(shell, "-lc", "echo $PATH").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// New creates a terminal manager. onData receives raw PTY output,
// onExit fires when the client process ends.
func New(onData func(data []byte), onExit func()) *Manager {
	return &Manager{
		onData:      onData,
		onExit:      onExit,
		pendingCols: 80,
		pendingRows: 24,
		shellPath:   resolveShellPath(),
	}
}

// clientArgs builds the CLI invocation for a profile. The password
// travels in the environment where the client supports it.
func clientArgs(profile *domain.ConnectionProfile, password string) (bin string, args, extraEnv []string, err error) {
	name, err := cliFor(profile.Engine)
	if err != nil {
		return "", nil, nil, err
	}
	bin = resolveBinary(name)

	switch profile.Engine {
	case domain.EnginePostgres:
		args = []string{
			"--host", profile.Host,
			"--port", strconv.Itoa(profile.Port),
			"--username", profile.Username,
			"--dbname", profile.Database,
		}
		extraEnv = append(extraEnv, "PGPASSWORD="+password)
	case domain.EngineMySQL, domain.EngineMariaDB:
		args = []string{
			"--host", profile.Host,
			"--port", strconv.Itoa(profile.Port),
			"--user", profile.Username,
			profile.Database,
		}
		extraEnv = append(extraEnv, "MYSQL_PWD="+password)
	case domain.EngineSQLite:
		// The host field carries the database file path.
		args = []string{profile.Host}
	case domain.EngineMongoDB:
		uri := fmt.Sprintf("mongodb://%s:%d/%s", profile.Host, profile.Port, profile.Database)
		args = []string{uri}
		if profile.Username != "" {
			args = append(args, "--username", profile.Username, "--password", password)
		}
	}
	return bin, args, extraEnv, nil
}

// Open starts the engine CLI for a profile. An existing session is
// closed first.
func (m *Manager) Open(profile *domain.ConnectionProfile, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		m.closeInternal()
	}

	bin, args, extraEnv, err := clientArgs(profile, password)
	if err != nil {
		return err
	}

	cmd := exec.Command(bin, args...)

	// Start from the current env, override PATH with the user's full
	// login shell PATH so the client and its helpers are found.
	env := os.Environ()
	if m.shellPath != "" {
		replaced := false
		for i, e := range env {
			if strings.HasPrefix(e, "PATH=") {
				env[i] = "PATH=" + m.shellPath
				replaced = true
				break
			}
		}
		if !replaced {
			env = append(env, "PATH="+m.shellPath)
		}
	}
	env = append(env,
		"TERM=xterm-256color",
		"COLORTERM=truecolor",
	)
	env = append(env, extraEnv...)
	cmd.Env = env

	// Start the PTY at the last known size so the client renders properly.
	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Cols: m.pendingCols,
		Rows: m.pendingRows,
	})
	if err != nil {
		return fmt.Errorf("start pty: %w", err)
	}

	m.ptmx = ptmx
	m.cmd = cmd
	m.running = true

	// Read PTY output and push it to the frontend.
	go func() {
		buf := make([]byte, 32768)
		for {
			n, err := ptmx.Read(buf)
			if n > 0 {
				data := make([]byte, n)
				copy(data, buf[:n])
				if m.onData != nil {
					m.onData(data)
				}
			}
			if err != nil {
				break
			}
		}

		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		if m.onExit != nil {
			m.onExit()
		}
	}()

	return nil
}

// Write sends input data to the PTY (keystrokes from xterm.js).
func (m *Manager) Write(data string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running || m.ptmx == nil {
		return fmt.Errorf("no active terminal session")
	}

	_, err := io.WriteString(m.ptmx, data)
	return err
}

// Resize updates the PTY window size.
func (m *Manager) Resize(cols, rows uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Always store for the next Open call
	m.pendingCols = cols
	m.pendingRows = rows

	if !m.running || m.ptmx == nil {
		return nil
	}

	return pty.Setsize(m.ptmx, &pty.Winsize{
		Cols: cols,
		Rows: rows,
	})
}

// IsRunning returns whether a session is active.
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Close closes the current PTY session.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeInternal()
}

func (m *Manager) closeInternal() {
	if m.ptmx != nil {
		m.ptmx.Close()
		m.ptmx = nil
	}
	if m.cmd != nil && m.cmd.Process != nil {
		m.cmd.Process.Kill()
		m.cmd.Wait()
		m.cmd = nil
	}
	m.running = false
}
