package data

import (
	"log/slog"
	"sort"
	"time"
)

// CredentialFile keeps one credential per account in a JSON array sorted by
// user id. The file is read on every call and replaced whole on every save.
type CredentialFile struct {
	path string
	now  func() time.Time
}

func NewCredentialFile(path string) *CredentialFile {
	return &CredentialFile{path: path, now: time.Now}
}

// WithClock replaces the wall clock used for expiry checks.
func (f *CredentialFile) WithClock(now func() time.Time) *CredentialFile {
	f.now = now
	return f
}

// load never fails: an unreadable or corrupt store reads as empty.
func (f *CredentialFile) load() []*Credential {
	var creds []*Credential
	if err := readJSON(f.path, &creds); err != nil {
		slog.Warn("credential store unreadable, treating as empty", "path", f.path, "err", err)
		return nil
	}
	return creds
}

// Get returns the cookie of the account's credential if it is still valid.
func (f *CredentialFile) Get(accountID int) (string, bool) {
	for _, c := range f.load() {
		if c == nil || c.UserID != accountID {
			continue
		}
		if !c.ValidAt(f.now()) {
			slog.Debug("credential expired or incomplete", "user_id", accountID)
			return "", false
		}
		return c.Cookie, true
	}
	return "", false
}

// First returns the first valid cookie in storage order.
func (f *CredentialFile) First() (string, bool) {
	if c := f.FirstValid(); c != nil {
		return c.Cookie, true
	}
	return "", false
}

// FirstValid is First returning the whole record.
func (f *CredentialFile) FirstValid() *Credential {
	now := f.now()
	for _, c := range f.load() {
		if c.ValidAt(now) {
			return c
		}
	}
	return nil
}

// Lookup returns the stored record for an account, valid or not.
func (f *CredentialFile) Lookup(accountID int) *Credential {
	for _, c := range f.load() {
		if c != nil && c.UserID == accountID {
			return c
		}
	}
	return nil
}

func (f *CredentialFile) List() []*Credential {
	return f.load()
}

// Save upserts cred by user id and keeps every other account's record.
func (f *CredentialFile) Save(cred *Credential) error {
	creds := f.load()

	replaced := false
	for i, c := range creds {
		if c != nil && c.UserID == cred.UserID {
			creds[i] = cred
			replaced = true
			break
		}
	}
	if !replaced {
		creds = append(creds, cred)
	}

	kept := creds[:0]
	for _, c := range creds {
		if c != nil {
			kept = append(kept, c)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].UserID < kept[j].UserID })

	if err := writeJSON(f.path, kept); err != nil {
		return NewError(KindStorage, "save credential", err)
	}
	slog.Info("credential saved", "user_id", cred.UserID, "replaced", replaced)
	return nil
}
