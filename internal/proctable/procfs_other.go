//go:build !linux

package proctable

// Procfs is unavailable off Linux; every call fails with ErrUnavailable.
type Procfs struct{}

// NewProcfs returns ErrUnavailable on non-Linux platforms.
func NewProcfs() (*Procfs, error) {
	return nil, ErrUnavailable
}

// Find returns ErrUnavailable on non-Linux platforms.
func (p *Procfs) Find(name string) ([]Process, error) {
	return nil, ErrUnavailable
}

// Alive always reports false on non-Linux platforms.
func (p *Procfs) Alive(pid int) bool {
	return false
}
