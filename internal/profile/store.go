package profile

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format is a persistence format.
type Format string

const (
	JSONLines   Format = "jsonl"
	MsgPack     Format = "msgpack"
	MsgPackZstd Format = "msgpack+zstd"
	SQLite      Format = "sqlite"
)

// FormatFor picks the format from a file name.
func FormatFor(path string) (Format, error) {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(name, ".jsonl"), strings.HasSuffix(name, ".json"):
		return JSONLines, nil
	case strings.HasSuffix(name, ".msgpack.zst"), strings.HasSuffix(name, ".mpk.zst"):
		return MsgPackZstd, nil
	case strings.HasSuffix(name, ".msgpack"), strings.HasSuffix(name, ".mpk"):
		return MsgPack, nil
	case strings.HasSuffix(name, ".db"), strings.HasSuffix(name, ".sqlite"):
		return SQLite, nil
	default:
		return "", fmt.Errorf("cannot infer profile format from %q (want .jsonl, .msgpack[.zst] or .db)", path)
	}
}

// Save writes p to path in the format its extension names.
func Save(path string, p *Profile) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	switch format {
	case JSONLines:
		return saveFile(path, p, writeJSONLines)
	case MsgPack:
		return saveFile(path, p, writeMsgPack)
	case MsgPackZstd:
		return saveFile(path, p, writeMsgPackZstd)
	default:
		return saveSQLite(path, p)
	}
}

// Load reads a profile saved by Save.
func Load(path string) (*Profile, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	switch format {
	case JSONLines:
		return loadFile(path, readJSONLines)
	case MsgPack:
		return loadFile(path, readMsgPack)
	case MsgPackZstd:
		return loadFile(path, readMsgPackZstd)
	default:
		return loadSQLite(path)
	}
}
