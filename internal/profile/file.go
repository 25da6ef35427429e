package profile

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

func saveFile(path string, p *Profile, write func(io.Writer, *Profile) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create profile %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close profile %s: %w", path, cerr)
		}
	}()

	w := bufio.NewWriter(f)
	if err := write(w, p); err != nil {
		return fmt.Errorf("failed to write profile %s: %w", path, err)
	}
	return w.Flush()
}

func loadFile(path string, read func(io.Reader) (*Profile, error)) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open profile %s: %w", path, err)
	}
	defer f.Close()

	p, err := read(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}
	return p, nil
}

// jsonHeader is the first line of a JSON-lines profile.
type jsonHeader struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
}

// jsonRecord is one record line. JSON has no NaN or infinities, so values
// that are not finite are written as null.
type jsonRecord struct {
	Title                string              `json:"title"`
	Values               map[string]*float64 `json:"values"`
	ExecutionTimeSeconds float64             `json:"execution_time_seconds"`
	Exports              map[string]any      `json:"exports,omitempty"`
	Knobs                map[string][]string `json:"knobs,omitempty"`
}

func writeJSONLines(w io.Writer, p *Profile) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(jsonHeader{RunID: p.RunID, StartedAt: p.StartedAt}); err != nil {
		return err
	}
	for _, r := range p.Records {
		values := make(map[string]*float64, len(r.Values))
		for name, v := range r.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				values[name] = nil
				continue
			}
			v := v
			values[name] = &v
		}
		line := jsonRecord{
			Title:                r.Title,
			Values:               values,
			ExecutionTimeSeconds: r.ExecutionTimeSeconds,
			Exports:              r.Exports,
			Knobs:                r.Knobs,
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("section %q: %w", r.Title, err)
		}
	}
	return nil
}

func readJSONLines(r io.Reader) (*Profile, error) {
	dec := json.NewDecoder(r)
	var h jsonHeader
	if err := dec.Decode(&h); err != nil {
		return nil, fmt.Errorf("bad header: %w", err)
	}
	p := &Profile{RunID: h.RunID, StartedAt: h.StartedAt}
	for {
		var line jsonRecord
		err := dec.Decode(&line)
		if errors.Is(err, io.EOF) {
			return p, nil
		}
		if err != nil {
			return nil, fmt.Errorf("bad record %d: %w", len(p.Records), err)
		}
		values := make(map[string]float64, len(line.Values))
		for name, v := range line.Values {
			if v == nil {
				values[name] = math.NaN()
				continue
			}
			values[name] = *v
		}
		p.Add(Record{
			Title:                line.Title,
			Values:               values,
			ExecutionTimeSeconds: line.ExecutionTimeSeconds,
			Exports:              line.Exports,
			Knobs:                line.Knobs,
		})
	}
}

func writeMsgPack(w io.Writer, p *Profile) error {
	return msgpack.NewEncoder(w).Encode(p)
}

func readMsgPack(r io.Reader) (*Profile, error) {
	var p Profile
	if err := msgpack.NewDecoder(r).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

func writeMsgPackZstd(w io.Writer, p *Profile) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if err := writeMsgPack(zw, p); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

func readMsgPackZstd(r io.Reader) (*Profile, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return readMsgPack(zr)
}
