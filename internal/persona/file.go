package persona

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
)

// FileSource reads persona records from a local JSONL file, one object per
// line. Used for offline runs and tests. Each Open shuffles the full set with
// the source seed.
type FileSource struct {
	path string
	seed int64
}

// NewFileSource creates a FileSource for the given JSONL path.
func NewFileSource(path string, seed int64) *FileSource {
	return &FileSource{path: path, seed: seed}
}

func (s *FileSource) Open(_ context.Context) (Stream, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("opening persona file: %w", err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("parsing persona line: %w", err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading persona file: %w", err)
	}

	rng := rand.New(rand.NewSource(s.seed))
	rng.Shuffle(len(records), func(i, j int) {
		records[i], records[j] = records[j], records[i]
	})

	return &sliceStream{records: records}, nil
}

type sliceStream struct {
	records []Record
}

func (st *sliceStream) Next(_ context.Context) (Record, error) {
	if len(st.records) == 0 {
		return nil, io.EOF
	}
	rec := st.records[0]
	st.records = st.records[1:]
	return rec, nil
}
