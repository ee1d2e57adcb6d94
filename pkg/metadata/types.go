package metadata

import "time"

// Record describes one source file of the knowledge graph. Records are
// produced by ingestion, persisted by a Store, and consumed by the graph
// builder. TopicCounts maps target file names to co-occurrence counts and is
// the raw material for edges.
type Record struct {
	FileName       string         `json:"fileName"`
	FileSize       int64          `json:"fileSize"`
	NodeSize       float64        `json:"nodeSize"`
	HyperlinkCount int            `json:"hyperlinkCount"`
	SHA1           string         `json:"sha1"`
	NodeID         string         `json:"nodeId,omitempty"`
	LastModified   time.Time      `json:"lastModified"`
	ExternalLink   string         `json:"externalLink,omitempty"`
	LastProcessed  *time.Time     `json:"lastProcessed,omitempty"`
	TopicCounts    map[string]int `json:"topicCounts,omitempty"`
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	c := r
	if r.TopicCounts != nil {
		c.TopicCounts = make(map[string]int, len(r.TopicCounts))
		for k, v := range r.TopicCounts {
			c.TopicCounts[k] = v
		}
	}
	if r.LastProcessed != nil {
		t := *r.LastProcessed
		c.LastProcessed = &t
	}
	return c
}

// Store persists metadata records between runs. Load returns every record
// keyed by file name; Save writes the full set back, including node ids
// assigned during a build.
type Store interface {
	Load() (map[string]Record, error)
	Save(records map[string]Record) error
	Get(fileName string) (Record, bool, error)
	Close() error
}
