// Package memory holds in-process implementations of every repository. The server uses it
// when no DATABASE_URL is configured outside production; tests use it as a fake store.
package memory

import "sync"

// Store bundles one of each repository.
type Store struct {
	Users       *UserRepository
	Sessions    *SessionRepository
	Devices     *DeviceRepository
	Revocations *RevocationRepository
	SecurityLog *SecurityLogRepository
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		Users:       NewUserRepository(),
		Sessions:    NewSessionRepository(),
		Devices:     NewDeviceRepository(),
		Revocations: NewRevocationRepository(),
		SecurityLog: NewSecurityLogRepository(),
	}
}

// failer lets tests make a repository fail every call, standing in for a database outage.
type failer struct {
	mu  sync.Mutex
	err error
}

// FailWith makes every later call return err. nil restores normal behaviour.
func (f *failer) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *failer) failure() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}
