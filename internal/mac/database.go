// ===== internal/mac/database.go =====
package mac

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strings"

	"dhcpwatch/internal/log"
	"dhcpwatch/pkg/models"
	"dhcpwatch/pkg/utils"
)

var (
	unknownEntry = &models.OUIEntry{
		OUI:     "00:00:00",
		Company: "UNKNOWN",
		Address: "UNKNOWN",
	}
	privateEntry = &models.OUIEntry{
		Private: true,
		Company: "Local/Privacy MAC",
		Address: "UNKNOWN",
	}
)

// Database resolves client hardware addresses to vendors
type Database struct {
	entries map[string]*models.OUIEntry
}

// NewDatabase loads an OUI database of one JSON object per line. An empty
// filename gives a database that only recognises private addresses.
func NewDatabase(filename string) (*Database, error) {
	db := &Database{entries: make(map[string]*models.OUIEntry)}
	if filename == "" {
		return db, nil
	}

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open MAC database: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	count := 0
	for scanner.Scan() {
		var entry models.OUIEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}

		db.entries[normalizePrefix(entry.OUI)] = &entry
		count++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read MAC database: %w", err)
	}

	log.Logger.Infof("Loaded %d MAC vendor entries from %s", count, filename)
	return db, nil
}

// Lookup finds the vendor of a hardware address, trying the longest
// matching prefix first
func (db *Database) Lookup(hw net.HardwareAddr) *models.OUIEntry {
	if len(hw) == 0 {
		return unknownEntry
	}

	key := normalizePrefix(hw.String())

	for i := len(key); i > 0; i-- {
		if entry, ok := db.entries[key[:i]]; ok {
			return entry
		}
	}

	if utils.IsPrivateMAC(hw) {
		return privateEntry
	}
	return unknownEntry
}

// LookupString parses s as a hardware address and looks it up
func (db *Database) LookupString(s string) *models.OUIEntry {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return unknownEntry
	}
	return db.Lookup(hw)
}

// Len returns the number of loaded entries
func (db *Database) Len() int {
	return len(db.entries)
}

func normalizePrefix(s string) string {
	return strings.ToUpper(strings.NewReplacer(":", "", "-", "", ".", "").Replace(s))
}
