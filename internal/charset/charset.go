// Package charset is the character-set/collation catalog the connection
// core consumes. It is a lookup table, not a protocol component: given a
// charset id it returns the canonical name and default collation, and given
// a name (optionally with an explicit collation) it returns the id.
package charset

import "fmt"

// Info describes one entry of the MySQL character set catalog.
type Info struct {
	ID         uint8
	Name       string
	Collation  string
	MaxLen     int
}

// table only lists the character sets a client actually needs to announce
// during the handshake and SET NAMES; it is not the full server catalog.
var table = []Info{
	{8, "latin1", "latin1_swedish_ci", 1},
	{33, "utf8", "utf8_general_ci", 3},
	{45, "utf8mb4", "utf8mb4_general_ci", 4},
	{46, "utf8mb4", "utf8mb4_bin", 4},
	{63, "binary", "binary", 1},
	{192, "utf8", "utf8_unicode_ci", 3},
	{224, "utf8mb4", "utf8mb4_unicode_ci", 4},
	{247, "latin1", "latin1_general_ci", 1},
	{248, "latin1", "latin1_general_cs", 1},
	{28, "gbk", "gbk_chinese_ci", 2},
	{87, "ascii", "ascii_general_ci", 1},
}

var byID = map[uint8]Info{}
var byNameCollation = map[string]Info{}
var defaultByName = map[string]Info{}

func init() {
	for _, info := range table {
		byID[info.ID] = info
		byNameCollation[info.Name+"/"+info.Collation] = info
		if _, ok := defaultByName[info.Name]; !ok {
			defaultByName[info.Name] = info
		}
	}
	// utf8_general_ci and utf8mb4_general_ci are the historical defaults
	// for their charset names; make sure they win over later table entries.
	defaultByName["utf8"] = byID[33]
	defaultByName["utf8mb4"] = byID[45]
}

// ByID returns the (name, collation) pair for a numeric charset id.
func ByID(id uint8) (name, collation string, ok bool) {
	info, ok := byID[id]
	if !ok {
		return "", "", false
	}
	return info.Name, info.Collation, true
}

// ByName resolves a charset name and optional collation to its numeric id.
// An empty collation selects the charset's default collation.
func ByName(name, collation string) (id uint8, resolvedName, resolvedCollation string, err error) {
	if name == "" {
		return 0, "", "", fmt.Errorf("charset: empty charset name")
	}
	if collation == "" {
		info, ok := defaultByName[name]
		if !ok {
			return 0, "", "", fmt.Errorf("charset: unknown charset %q", name)
		}
		return info.ID, info.Name, info.Collation, nil
	}
	info, ok := byNameCollation[name+"/"+collation]
	if !ok {
		return 0, "", "", fmt.Errorf("charset: unknown charset/collation %q/%q", name, collation)
	}
	return info.ID, info.Name, info.Collation, nil
}
