package specifier

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/arthur-debert/tmpfiles/pkg/errors"
	"github.com/spf13/afero"
)

// Context is everything a specifier can expand to. It is filled once per
// run (see Probe) and never consulted for anything else, so resolving is a
// pure function of the input string and the Context.
type Context struct {
	// User selects per-user directories for %C %L %S %t.
	User bool

	Hostname      string
	MachineID     string
	BootID        string
	Arch          string
	KernelRelease string

	// OSRelease holds the os-release key/value pairs.
	OSRelease map[string]string

	UserName  string
	UID       int
	GroupName string
	GID       int
	Home      string

	// HasUser is false when no invoking user could be determined.
	HasUser bool

	CacheDir   string
	LogDir     string
	StateDir   string
	RuntimeDir string
	TempDir    string
	VarTempDir string

	// Overrides win over every computed value. Keys are the specifier
	// letter without the percent sign.
	Overrides map[string]string

	// Credentials are looked up by name first, then read from
	// CredentialsDir through CredentialsFS.
	Credentials    map[string]string
	CredentialsDir string
	CredentialsFS  afero.Fs
}

// Warning reports a token that was kept verbatim.
type Warning struct {
	Token   string
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Token, w.Message)
}

// Resolver expands %-specifiers against a Context.
type Resolver struct {
	ctx Context
}

// New creates a Resolver for ctx
func New(ctx Context) *Resolver {
	return &Resolver{ctx: ctx}
}

// Context returns the context the resolver was built with
func (r *Resolver) Context() Context {
	return r.ctx
}

// Resolve replaces every specifier in s. Unknown specifiers are kept and
// reported as warnings. A known specifier without a value is an error.
func (r *Resolver) Resolve(s string) (string, []Warning, error) {
	if !strings.ContainsRune(s, '%') {
		return s, nil, nil
	}

	var (
		b        strings.Builder
		warnings []Warning
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(s) {
			b.WriteByte(c)
			warnings = append(warnings, Warning{Token: "%", Message: "trailing percent sign kept"})
			continue
		}
		i++
		letter := s[i]
		if letter == '%' {
			b.WriteByte('%')
			continue
		}

		value, known, err := r.lookup(letter)
		if !known {
			token := "%" + string(letter)
			b.WriteString(token)
			warnings = append(warnings, Warning{Token: token, Message: "unknown specifier kept"})
			continue
		}
		if err != nil {
			return "", warnings, err
		}
		b.WriteString(value)
	}
	return b.String(), warnings, nil
}

// lookup returns the value of one specifier letter. known is false for
// letters that are not specifiers at all.
func (r *Resolver) lookup(letter byte) (value string, known bool, err error) {
	key := string(letter)
	if v, ok := r.ctx.Overrides[key]; ok {
		return v, true, nil
	}

	c := r.ctx
	switch letter {
	case 'a':
		value = c.Arch
	case 'A':
		value = c.OSRelease["IMAGE_VERSION"]
	case 'b':
		value = c.BootID
	case 'B':
		value = c.OSRelease["BUILD_ID"]
	case 'C':
		value = c.CacheDir
	case 'g':
		if c.HasUser {
			value = c.GroupName
		}
	case 'G':
		if c.HasUser {
			value = strconv.Itoa(c.GID)
		}
	case 'h':
		if c.HasUser {
			value = c.Home
		}
	case 'H':
		value = c.Hostname
	case 'l':
		value, _, _ = strings.Cut(c.Hostname, ".")
	case 'L':
		value = c.LogDir
	case 'm':
		value = c.MachineID
	case 'M':
		value = c.OSRelease["IMAGE_ID"]
	case 'o':
		value = c.OSRelease["ID"]
	case 'S':
		value = c.StateDir
	case 't':
		value = c.RuntimeDir
	case 'T':
		value = c.TempDir
	case 'u':
		if c.HasUser {
			value = c.UserName
		}
	case 'U':
		if c.HasUser {
			value = strconv.Itoa(c.UID)
		}
	case 'v':
		value = c.KernelRelease
	case 'V':
		value = c.VarTempDir
	case 'w':
		value = c.OSRelease["VERSION_ID"]
	case 'W':
		value = c.OSRelease["VARIANT_ID"]
	default:
		return "", false, nil
	}

	if value == "" {
		return "", true, errors.Newf(errors.ErrSpecifierUnresolved, "specifier %%%c has no value", letter).
			WithDetail("specifier", "%"+key)
	}
	return value, true, nil
}

// Credential returns the value of a named credential.
func (r *Resolver) Credential(name string) (string, error) {
	if v, ok := r.ctx.Credentials[name]; ok {
		return v, nil
	}
	if name == "" || strings.ContainsRune(name, '/') {
		return "", errors.Newf(errors.ErrCredentialMissing, "invalid credential name %q", name).
			WithDetail("credential", name)
	}
	if r.ctx.CredentialsDir == "" || r.ctx.CredentialsFS == nil {
		return "", errors.Newf(errors.ErrCredentialMissing, "credential %q is not available", name).
			WithDetail("credential", name)
	}

	data, err := afero.ReadFile(r.ctx.CredentialsFS, path.Join(r.ctx.CredentialsDir, name))
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrCredentialMissing, "credential %q is not available", name).
			WithDetail("credential", name)
	}
	return string(data), nil
}
