package passphrase

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Source lazily resolves the operator keystore passphrase from an environment
// variable or a terminal prompt. The first result is cached.
type Source struct {
	envVar string
	prompt func() ([]byte, error)
	isTTY  func() bool

	once  sync.Once
	value string
	err   error
}

func NewSource(envVar string) *Source {
	fd := int(os.Stdin.Fd())
	return &Source{
		envVar: strings.TrimSpace(envVar),
		prompt: func() ([]byte, error) { return term.ReadPassword(fd) },
		isTTY:  func() bool { return term.IsTerminal(fd) },
	}
}

// Get returns the passphrase. An environment value is used verbatim; a
// whitespace-only passphrase is rejected either way.
func (s *Source) Get() (string, error) {
	s.once.Do(func() {
		if s.envVar != "" {
			if value, ok := os.LookupEnv(s.envVar); ok {
				if strings.TrimSpace(value) == "" {
					s.err = fmt.Errorf("%s is set but empty", s.envVar)
					return
				}
				s.value = value
				return
			}
		}

		if !s.isTTY() {
			if s.envVar != "" {
				s.err = fmt.Errorf("operator keystore passphrase required; set %s or run interactively", s.envVar)
			} else {
				s.err = errors.New("operator keystore passphrase required and no terminal available")
			}
			return
		}

		fmt.Fprint(os.Stderr, "Enter operator keystore passphrase: ")
		raw, err := s.prompt()
		fmt.Fprintln(os.Stderr)
		if err != nil {
			s.err = fmt.Errorf("read passphrase: %w", err)
			return
		}
		if strings.TrimSpace(string(raw)) == "" {
			s.err = errors.New("operator keystore passphrase cannot be empty")
			return
		}
		s.value = string(raw)
	})
	return s.value, s.err
}
