package data

import (
	"bufio"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var accountLine = regexp.MustCompile(`^(\d+)\.\s+(\S+)\s+(\S+)`)

// AccountsTemplate is written by setup when no accounts file exists.
const AccountsTemplate = `# One account per line: <number>. <email> <password>
# e.g. 1. example@mail.com password123
`

// ReadAccounts parses the accounts file. Lines that are blank, start with '#'
// or do not match "N. email password" are skipped.
func ReadAccounts(path string) ([]Account, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	var accounts []Account
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m := accountLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		accounts = append(accounts, Account{ID: id, Email: m[2], Password: m[3]})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	return accounts, nil
}

// FindAccount returns the account with the given id.
func FindAccount(accounts []Account, id int) (Account, bool) {
	for _, a := range accounts {
		if a.ID == id {
			return a, true
		}
	}
	return Account{}, false
}
