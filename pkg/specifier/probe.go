package specifier

import (
	"bufio"
	"bytes"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/arthur-debert/tmpfiles/pkg/logging"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
)

// Well known files read by Probe, relative to the configured root.
const (
	MachineIDPath      = "/etc/machine-id"
	BootIDPath         = "/proc/sys/kernel/random/boot_id"
	OSReleasePath      = "/etc/os-release"
	OSReleaseFallback  = "/usr/lib/os-release"
	DefaultSystemCache = "/var/cache"
	DefaultSystemLog   = "/var/log"
	DefaultSystemState = "/var/lib"
	DefaultSystemRun   = "/run"
	DefaultTempDir     = "/tmp"
	DefaultVarTempDir  = "/var/tmp"
)

// ProbeOptions controls what Probe looks at.
type ProbeOptions struct {
	// FS is where machine-id and os-release are read from. It should be
	// rooted the same way the configuration is.
	FS   afero.Fs
	User bool

	Overrides      map[string]string
	Credentials    map[string]string
	CredentialsDir string
}

// Probe gathers the host facts specifiers expand to. Missing facts are left
// empty and only become errors when a rule actually asks for them.
func Probe(opts ProbeOptions) Context {
	logger := logging.GetLogger("specifier")

	fsys := opts.FS
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	ctx := Context{
		User:           opts.User,
		Arch:           archName(runtime.GOARCH),
		KernelRelease:  kernelRelease(),
		MachineID:      readFirstLine(fsys, MachineIDPath),
		BootID:         strings.ReplaceAll(readFirstLine(fsys, BootIDPath), "-", ""),
		OSRelease:      readOSRelease(fsys),
		TempDir:        tempDir(DefaultTempDir),
		VarTempDir:     tempDir(DefaultVarTempDir),
		Overrides:      opts.Overrides,
		Credentials:    opts.Credentials,
		CredentialsDir: opts.CredentialsDir,
		CredentialsFS:  fsys,
	}

	if host, err := os.Hostname(); err == nil {
		ctx.Hostname = host
	}

	if u, err := user.Current(); err == nil {
		ctx.HasUser = true
		ctx.UserName = u.Username
		ctx.UID, _ = strconv.Atoi(u.Uid)
		ctx.GID, _ = strconv.Atoi(u.Gid)
		if g, err := user.LookupGroupId(u.Gid); err == nil {
			ctx.GroupName = g.Name
		}
		ctx.Home = u.HomeDir
	} else {
		logger.Debug().Err(err).Msg("no invoking user")
	}
	if home, err := homedir.Dir(); err == nil && ctx.Home == "" {
		ctx.Home = home
	}

	if opts.User {
		ctx.CacheDir = xdg.CacheHome
		ctx.StateDir = xdg.StateHome
		ctx.LogDir = filepath.Join(xdg.StateHome, "log")
		ctx.RuntimeDir = xdg.RuntimeDir
	} else {
		ctx.CacheDir = DefaultSystemCache
		ctx.StateDir = DefaultSystemState
		ctx.LogDir = DefaultSystemLog
		ctx.RuntimeDir = DefaultSystemRun
	}

	logger.Debug().
		Str("machine_id", ctx.MachineID).
		Str("hostname", ctx.Hostname).
		Bool("user", ctx.User).
		Msg("probed specifier context")
	return ctx
}

func readFirstLine(fsys afero.Fs, name string) string {
	data, err := afero.ReadFile(fsys, name)
	if err != nil {
		return ""
	}
	line, _, _ := bytes.Cut(data, []byte("\n"))
	return strings.TrimSpace(string(line))
}

func readOSRelease(fsys afero.Fs) map[string]string {
	data, err := afero.ReadFile(fsys, OSReleasePath)
	if err != nil {
		data, err = afero.ReadFile(fsys, OSReleaseFallback)
		if err != nil {
			return map[string]string{}
		}
	}
	return ParseOSRelease(data)
}

// ParseOSRelease parses the KEY=value format of os-release(5). Values may be
// single or double quoted.
func ParseOSRelease(data []byte) map[string]string {
	out := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if n := len(value); n >= 2 && (value[0] == '"' || value[0] == '\'') && value[n-1] == value[0] {
			value = value[1 : n-1]
			if value != "" {
				value = strings.NewReplacer(`\"`, `"`, `\\`, `\`, `\$`, `$`, "\\`", "`").Replace(value)
			}
		}
		out[strings.TrimSpace(key)] = value
	}
	return out
}

func tempDir(fallback string) string {
	for _, env := range []string{"TMPDIR", "TEMP", "TMP"} {
		if dir := os.Getenv(env); filepath.IsAbs(dir) {
			return dir
		}
	}
	return fallback
}

var archNames = map[string]string{
	"amd64":    "x86-64",
	"386":      "x86",
	"arm64":    "arm64",
	"arm":      "arm",
	"riscv64":  "riscv64",
	"ppc64":    "ppc64",
	"ppc64le":  "ppc64-le",
	"s390x":    "s390x",
	"mips64le": "mips64-le",
	"loong64":  "loongarch64",
}

func archName(goarch string) string {
	if name, ok := archNames[goarch]; ok {
		return name
	}
	return goarch
}
