package metadata

import (
	"strconv"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Header keys written by the bridge when a stream is published onto a topic.
const (
	KeyStream      = "rxflow_stream"
	KeyKind        = "rxflow_kind"
	KeySequence    = "rxflow_sequence"
	KeyContentType = "rxflow_content_type"
	KeyError       = "rxflow_error"
)

// Metadata represents the headers carried alongside a bridged notification.
type Metadata map[string]string

func (m Metadata) cloneWithExtra(extra int) Metadata {
	cloned := make(Metadata, len(m)+extra)
	for k, v := range m {
		cloned[k] = v
	}
	return cloned
}

// Clone returns a shallow copy of the metadata map.
func (m Metadata) Clone() Metadata {
	return m.cloneWithExtra(0)
}

// With returns a cloned metadata map containing the provided key/value pair.
func (m Metadata) With(key, value string) Metadata {
	cloned := m.cloneWithExtra(1)
	cloned[key] = value
	return cloned
}

// WithAll returns a cloned metadata map containing the supplied entries.
func (m Metadata) WithAll(entries Metadata) Metadata {
	cloned := m.cloneWithExtra(len(entries))
	for k, v := range entries {
		cloned[k] = v
	}
	return cloned
}

// Sequence reads KeySequence, returning -1 when absent or malformed.
func (m Metadata) Sequence() int64 {
	seq, err := strconv.ParseInt(m[KeySequence], 10, 64)
	if err != nil {
		return -1
	}
	return seq
}

// WithSequence returns a clone carrying seq under KeySequence.
func (m Metadata) WithSequence(seq int64) Metadata {
	return m.With(KeySequence, strconv.FormatInt(seq, 10))
}

// New constructs a Metadata map from alternating key/value pairs.
func New(pairs ...string) Metadata {
	md := make(Metadata, len(pairs)/2)
	for i := 0; i < len(pairs)-1; i += 2 {
		md[pairs[i]] = pairs[i+1]
	}
	return md
}

// FromWatermill copies Watermill metadata into a Metadata map.
func FromWatermill(md message.Metadata) Metadata {
	return Metadata(md).Clone()
}

// ToWatermill copies metadata into a Watermill map.
func ToWatermill(md Metadata) message.Metadata {
	return message.Metadata(md.Clone())
}
