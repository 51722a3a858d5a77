package persona

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHubBaseURL = "https://datasets-server.huggingface.co"
	defaultDataset    = "nvidia/Nemotron-Personas-USA"
	pageSize          = 100
)

// HubSource streams persona rows from the Hugging Face datasets-server rows
// API. Each opened stream starts at a seeded random offset and shuffles within
// each fetched page, so draws are reproducible for a given seed but look
// random across the dataset.
type HubSource struct {
	baseURL    string
	dataset    string
	seed       int64
	httpClient *http.Client
}

// NewHubSource creates a HubSource for the default Nemotron personas dataset.
func NewHubSource(seed int64) *HubSource {
	return &HubSource{
		baseURL: defaultHubBaseURL,
		dataset: defaultDataset,
		seed:    seed,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithDataset overrides the dataset slug. Empty input keeps the default.
func (s *HubSource) WithDataset(dataset string) *HubSource {
	if dataset != "" {
		s.dataset = dataset
	}
	return s
}

// NewHubSourceWithBaseURL creates a HubSource against a custom endpoint (for testing).
func NewHubSourceWithBaseURL(seed int64, baseURL, dataset string) *HubSource {
	s := NewHubSource(seed)
	s.baseURL = strings.TrimRight(baseURL, "/")
	s.dataset = dataset
	return s
}

type rowsResponse struct {
	Rows []struct {
		Row map[string]any `json:"row"`
	} `json:"rows"`
	NumRowsTotal int `json:"num_rows_total"`
}

// Open fetches the dataset size and returns a stream positioned at a random
// offset derived from the source seed.
func (s *HubSource) Open(ctx context.Context) (Stream, error) {
	rng := rand.New(rand.NewSource(s.seed))

	first, err := s.fetchRows(ctx, 0, 1)
	if err != nil {
		return nil, fmt.Errorf("probing dataset size: %w", err)
	}
	total := first.NumRowsTotal
	if total <= 0 {
		return nil, fmt.Errorf("dataset %s reports no rows", s.dataset)
	}

	return &hubStream{
		source: s,
		rng:    rng,
		offset: rng.Intn(total),
		total:  total,
	}, nil
}

type hubStream struct {
	source *HubSource
	rng    *rand.Rand
	offset int
	total  int
	buf    []Record
}

// Next returns the next buffered record, fetching and shuffling a new page
// when the buffer runs dry. It returns io.EOF once the dataset wraps out.
func (st *hubStream) Next(ctx context.Context) (Record, error) {
	if len(st.buf) == 0 {
		if err := st.fill(ctx); err != nil {
			return nil, err
		}
	}
	rec := st.buf[0]
	st.buf = st.buf[1:]
	return rec, nil
}

func (st *hubStream) fill(ctx context.Context) error {
	if st.offset >= st.total {
		return io.EOF
	}

	resp, err := st.source.fetchRows(ctx, st.offset, pageSize)
	if err != nil {
		return err
	}
	if len(resp.Rows) == 0 {
		return io.EOF
	}

	page := make([]Record, len(resp.Rows))
	for i, r := range resp.Rows {
		page[i] = Record(r.Row)
	}
	st.rng.Shuffle(len(page), func(i, j int) {
		page[i], page[j] = page[j], page[i]
	})

	st.buf = page
	st.offset += len(resp.Rows)
	return nil
}

func (s *HubSource) fetchRows(ctx context.Context, offset, length int) (*rowsResponse, error) {
	q := url.Values{}
	q.Set("dataset", s.dataset)
	q.Set("config", "default")
	q.Set("split", "train")
	q.Set("offset", strconv.Itoa(offset))
	q.Set("length", strconv.Itoa(length))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/rows?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating rows request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching rows: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rows endpoint: unexpected status %d", resp.StatusCode)
	}

	var out rowsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding rows: %w", err)
	}
	return &out, nil
}
