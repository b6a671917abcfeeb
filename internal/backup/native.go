package backup

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"dbdock/internal/domain"
)

// nativeToolTimeout is the hard ceiling for one dump/restore run so a
// hung tool cannot wedge the scheduler.
const nativeToolTimeout = 30 * time.Minute

// stderrLimit caps how much tool output ends up in an error message.
const stderrLimit = 2000

// toolFor names the native dump tool for an engine. SQLite uses
// VACUUM INTO through the driver and has no external tool.
func toolFor(engine domain.Engine) string {
	switch engine {
	case domain.EnginePostgres:
		return "pg_dump"
	case domain.EngineMySQL, domain.EngineMariaDB:
		return "mysqldump"
	case domain.EngineMongoDB:
		return "mongodump"
	default:
		return ""
	}
}

func restoreToolFor(engine domain.Engine) string {
	switch engine {
	case domain.EnginePostgres:
		return "psql"
	case domain.EngineMySQL, domain.EngineMariaDB:
		return "mysql"
	case domain.EngineMongoDB:
		return "mongorestore"
	default:
		return ""
	}
}

func hasTool(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// runTool executes a native database tool with a hard timeout,
// returning its stderr (truncated) on failure.
func runTool(ctx context.Context, name string, args, env []string) error {
	ctx, cancel := context.WithTimeout(ctx, nativeToolTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := stderr.String()
		if len(msg) > stderrLimit {
			msg = msg[:stderrLimit] + "... (truncated)"
		}
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%s timed out after %s", name, nativeToolTimeout)
		}
		return fmt.Errorf("%s: %w: %s", name, err, msg)
	}
	return nil
}

// dumpArgs builds the native dump invocation for a profile. tables is
// nil for a full backup.
func dumpArgs(profile *domain.ConnectionProfile, password, outPath string, tables []string) (args, env []string) {
	switch profile.Engine {
	case domain.EnginePostgres:
		args = []string{
			"--host", profile.Host,
			"--port", strconv.Itoa(profile.Port),
			"--username", profile.Username,
			"--dbname", profile.Database,
			"--file", outPath,
			"--no-password",
		}
		for _, t := range tables {
			args = append(args, "--table", t)
		}
		env = append(env, "PGPASSWORD="+password)
	case domain.EngineMySQL, domain.EngineMariaDB:
		args = []string{
			"--host", profile.Host,
			"--port", strconv.Itoa(profile.Port),
			"--user", profile.Username,
			"--result-file", outPath,
			"--single-transaction",
			profile.Database,
		}
		args = append(args, tables...)
		env = append(env, "MYSQL_PWD="+password)
	case domain.EngineMongoDB:
		args = []string{
			"--host", profile.Host,
			"--port", strconv.Itoa(profile.Port),
			"--db", profile.Database,
			"--archive=" + outPath,
		}
		if profile.Username != "" {
			args = append(args, "--username", profile.Username, "--password", password)
		}
	}
	return args, env
}

// restoreArgs builds the native restore invocation for a dump file.
func restoreArgs(profile *domain.ConnectionProfile, password, dumpPath string) (args, env []string) {
	switch profile.Engine {
	case domain.EnginePostgres:
		args = []string{
			"--host", profile.Host,
			"--port", strconv.Itoa(profile.Port),
			"--username", profile.Username,
			"--dbname", profile.Database,
			"--file", dumpPath,
			"--no-password",
		}
		env = append(env, "PGPASSWORD="+password)
	case domain.EngineMySQL, domain.EngineMariaDB:
		args = []string{
			"--host", profile.Host,
			"--port", strconv.Itoa(profile.Port),
			"--user", profile.Username,
			"--execute", "source " + dumpPath,
			profile.Database,
		}
		env = append(env, "MYSQL_PWD="+password)
	case domain.EngineMongoDB:
		args = []string{
			"--host", profile.Host,
			"--port", strconv.Itoa(profile.Port),
			"--archive=" + dumpPath,
			"--drop",
		}
		if profile.Username != "" {
			args = append(args, "--username", profile.Username, "--password", password)
		}
	}
	return args, env
}
