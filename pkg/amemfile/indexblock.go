package amemfile

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/agenticmemory/amem/pkg/bm25"
	"github.com/agenticmemory/amem/pkg/event"
	"github.com/agenticmemory/amem/pkg/graph"
)

func float32bits(f float32) uint32     { return math.Float32bits(f) }
func float32frombits(b uint32) float32 { return math.Float32frombits(b) }

func sortNodeIDs(ids []event.NodeID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

// Index-block tag bytes, per spec §4.1. A parser encountering an unknown tag
// must skip it by advancing past its declared length rather than failing.
const (
	TagTypeIndex     byte = 0x01
	TagTemporalIndex byte = 0x02
	TagSessionIndex  byte = 0x03
	TagClusterMap    byte = 0x04
	TagTermIndex     byte = 0x05
	TagDocLengths    byte = 0x06
)

// decodedIndexes carries whatever index-block entries a Reader was able to
// parse. Any field may be nil if its tag was absent from the file.
type decodedIndexes struct {
	typeIndex     map[event.EventType][]event.NodeID
	temporal      []struct {
		CreatedAt uint64
		ID        event.NodeID
	}
	session map[uint32][]event.NodeID

	clusterK         int
	clusterDim       int
	clusterCentroids [][]float32
	clusterMembers   [][]event.NodeID
	hasClusterMap    bool

	termPostings map[string][]bm25.Posting
	hasTermIndex bool

	docLengths    map[event.NodeID]uint32
	docLengthsAvg float32
	hasDocLengths bool
}

// encodeIndexBlock serializes whichever optional indexes g carries into the
// tagged index block. Always-on indexes (type, temporal, session) are always
// written. Read decodes them but does not install them: graph.FromParts
// rebuilds those three indexes from the node table.
func encodeIndexBlock(g *graph.MemoryGraph) []byte {
	var out []byte

	out = appendTag(out, TagTypeIndex, encodeTypeIndex(g))
	out = appendTag(out, TagTemporalIndex, encodeTemporalIndex(g))
	out = appendTag(out, TagSessionIndex, encodeSessionIndex(g))

	if cm := g.ClusterMap(); cm != nil {
		out = appendTag(out, TagClusterMap, encodeClusterMap(cm, g.Dimension()))
	}
	if ti, ok := g.TermIndex().(*bm25.TermIndex); ok && ti != nil {
		out = appendTag(out, TagTermIndex, encodeTermIndex(ti))
	}
	if dl, ok := g.DocLengths().(*bm25.DocLengths); ok && dl != nil {
		out = appendTag(out, TagDocLengths, encodeDocLengths(dl))
	}

	return out
}

func appendTag(out []byte, tag byte, payload []byte) []byte {
	header := make([]byte, 5)
	header[0] = tag
	binary.LittleEndian.PutUint32(header[1:5], uint32(len(payload)))
	out = append(out, header...)
	out = append(out, payload...)
	return out
}

func encodeTypeIndex(g *graph.MemoryGraph) []byte {
	ti := g.TypeIndex()
	var buf []byte
	for et := event.EventType(0); et.Valid(); et++ {
		ids := ti.Get(et)
		if len(ids) == 0 {
			continue
		}
		entry := make([]byte, 5+8*len(ids))
		entry[0] = byte(et)
		binary.LittleEndian.PutUint32(entry[1:5], uint32(len(ids)))
		for i, id := range ids {
			binary.LittleEndian.PutUint64(entry[5+8*i:13+8*i], id)
		}
		buf = append(buf, entry...)
	}
	head := make([]byte, 2)
	count := 0
	for et := event.EventType(0); et.Valid(); et++ {
		if len(ti.Get(et)) > 0 {
			count++
		}
	}
	binary.LittleEndian.PutUint16(head, uint16(count))
	return append(head, buf...)
}

func decodeTypeIndex(buf []byte) map[event.EventType][]event.NodeID {
	out := make(map[event.EventType][]event.NodeID)
	if len(buf) < 2 {
		return out
	}
	count := binary.LittleEndian.Uint16(buf[0:2])
	pos := 2
	for i := uint16(0); i < count; i++ {
		if pos+5 > len(buf) {
			break
		}
		et := event.EventType(buf[pos])
		n := binary.LittleEndian.Uint32(buf[pos+1 : pos+5])
		pos += 5
		ids := make([]event.NodeID, n)
		for j := uint32(0); j < n; j++ {
			ids[j] = binary.LittleEndian.Uint64(buf[pos : pos+8])
			pos += 8
		}
		out[et] = ids
	}
	return out
}

func encodeTemporalIndex(g *graph.MemoryGraph) []byte {
	ids := g.TemporalIndex().MostRecent(g.NodeCount())
	// MostRecent returns newest-first; reverse to oldest-first so it matches
	// insertion/creation order for a readable on-disk layout.
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	buf := make([]byte, 4, 4+16*len(ids))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(ids)))
	for _, id := range ids {
		n, err := g.GetNode(id)
		if err != nil {
			continue
		}
		entry := make([]byte, 16)
		binary.LittleEndian.PutUint64(entry[0:8], n.CreatedAt)
		binary.LittleEndian.PutUint64(entry[8:16], id)
		buf = append(buf, entry...)
	}
	return buf
}

func decodeTemporalIndex(buf []byte) []struct {
	CreatedAt uint64
	ID        event.NodeID
} {
	var out []struct {
		CreatedAt uint64
		ID        event.NodeID
	}
	if len(buf) < 4 {
		return out
	}
	count := binary.LittleEndian.Uint32(buf[0:4])
	pos := 4
	for i := uint32(0); i < count && pos+16 <= len(buf); i++ {
		out = append(out, struct {
			CreatedAt uint64
			ID        event.NodeID
		}{
			CreatedAt: binary.LittleEndian.Uint64(buf[pos : pos+8]),
			ID:        binary.LittleEndian.Uint64(buf[pos+8 : pos+16]),
		})
		pos += 16
	}
	return out
}

func encodeSessionIndex(g *graph.MemoryGraph) []byte {
	si := g.SessionIndex()
	sessions := si.Sessions()
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(sessions)))
	for _, sid := range sessions {
		ids := si.Get(sid)
		entry := make([]byte, 8+8*len(ids))
		binary.LittleEndian.PutUint32(entry[0:4], sid)
		binary.LittleEndian.PutUint32(entry[4:8], uint32(len(ids)))
		for i, id := range ids {
			binary.LittleEndian.PutUint64(entry[8+8*i:16+8*i], id)
		}
		buf = append(buf, entry...)
	}
	return buf
}

func decodeSessionIndex(buf []byte) map[uint32][]event.NodeID {
	out := make(map[uint32][]event.NodeID)
	if len(buf) < 4 {
		return out
	}
	count := binary.LittleEndian.Uint32(buf[0:4])
	pos := 4
	for i := uint32(0); i < count; i++ {
		if pos+8 > len(buf) {
			break
		}
		sid := binary.LittleEndian.Uint32(buf[pos : pos+4])
		n := binary.LittleEndian.Uint32(buf[pos+4 : pos+8])
		pos += 8
		ids := make([]event.NodeID, n)
		for j := uint32(0); j < n; j++ {
			ids[j] = binary.LittleEndian.Uint64(buf[pos : pos+8])
			pos += 8
		}
		out[sid] = ids
	}
	return out
}

// encodeClusterMap serializes a ClusterMap's centroids and member lists.
// dim is passed in explicitly (from the graph, not guessed from a possibly
// empty cluster) since a cluster may legitimately have zero members.
func encodeClusterMap(cm *graph.ClusterMap, dim int) []byte {
	k := cm.K()
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(k))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(dim))

	centroidBuf := make([]byte, 0, k*dim*4)
	for c := 0; c < k; c++ {
		v := cm.Centroid(c)
		for d := 0; d < dim; d++ {
			var f float32
			if d < len(v) {
				f = v[d]
			}
			b := make([]byte, 4)
			binary.LittleEndian.PutUint32(b, float32bits(f))
			centroidBuf = append(centroidBuf, b...)
		}
	}
	buf = append(buf, centroidBuf...)

	for c := 0; c < k; c++ {
		members := cm.GetCluster(c)
		entry := make([]byte, 4+8*len(members))
		binary.LittleEndian.PutUint32(entry[0:4], uint32(len(members)))
		for i, id := range members {
			binary.LittleEndian.PutUint64(entry[4+8*i:12+8*i], id)
		}
		buf = append(buf, entry...)
	}
	return buf
}

func decodeClusterMap(buf []byte) (k, dim int, centroids [][]float32, members [][]event.NodeID) {
	if len(buf) < 8 {
		return 0, 0, nil, nil
	}
	k = int(binary.LittleEndian.Uint32(buf[0:4]))
	dim = int(binary.LittleEndian.Uint32(buf[4:8]))
	pos := 8

	centroids = make([][]float32, k)
	for c := 0; c < k; c++ {
		vec := make([]float32, dim)
		for d := 0; d < dim; d++ {
			if pos+4 > len(buf) {
				break
			}
			vec[d] = float32frombits(binary.LittleEndian.Uint32(buf[pos : pos+4]))
			pos += 4
		}
		centroids[c] = vec
	}

	members = make([][]event.NodeID, k)
	for c := 0; c < k; c++ {
		if pos+4 > len(buf) {
			break
		}
		n := binary.LittleEndian.Uint32(buf[pos : pos+4])
		pos += 4
		ids := make([]event.NodeID, n)
		for i := uint32(0); i < n; i++ {
			if pos+8 > len(buf) {
				break
			}
			ids[i] = binary.LittleEndian.Uint64(buf[pos : pos+8])
			pos += 8
		}
		members[c] = ids
	}
	return k, dim, centroids, members
}

func encodeTermIndex(ti *bm25.TermIndex) []byte {
	vocab := ti.Vocab()
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(vocab)))
	for _, term := range vocab {
		posts := ti.RawPostings(term)
		entry := make([]byte, 2+len(term)+4)
		binary.LittleEndian.PutUint16(entry[0:2], uint16(len(term)))
		copy(entry[2:2+len(term)], term)
		binary.LittleEndian.PutUint32(entry[2+len(term):6+len(term)], uint32(len(posts)))
		for _, p := range posts {
			pe := make([]byte, 12)
			binary.LittleEndian.PutUint64(pe[0:8], p.NodeID)
			binary.LittleEndian.PutUint32(pe[8:12], p.Freq)
			entry = append(entry, pe...)
		}
		buf = append(buf, entry...)
	}
	return buf
}

func decodeTermIndex(buf []byte) map[string][]bm25.Posting {
	out := make(map[string][]bm25.Posting)
	if len(buf) < 4 {
		return out
	}
	count := binary.LittleEndian.Uint32(buf[0:4])
	pos := 4
	for i := uint32(0); i < count; i++ {
		if pos+2 > len(buf) {
			break
		}
		termLen := binary.LittleEndian.Uint16(buf[pos : pos+2])
		pos += 2
		if pos+int(termLen) > len(buf) {
			break
		}
		term := string(buf[pos : pos+int(termLen)])
		pos += int(termLen)
		if pos+4 > len(buf) {
			break
		}
		postCount := binary.LittleEndian.Uint32(buf[pos : pos+4])
		pos += 4
		posts := make([]bm25.Posting, 0, postCount)
		for j := uint32(0); j < postCount; j++ {
			if pos+12 > len(buf) {
				break
			}
			posts = append(posts, bm25.Posting{
				NodeID: binary.LittleEndian.Uint64(buf[pos : pos+8]),
				Freq:   binary.LittleEndian.Uint32(buf[pos+8 : pos+12]),
			})
			pos += 12
		}
		out[term] = posts
	}
	return out
}

func encodeDocLengths(dl *bm25.DocLengths) []byte {
	entries := dl.Entries()
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(entries)))
	binary.LittleEndian.PutUint32(buf[4:8], float32bits(dl.AvgLength()))
	ids := make([]event.NodeID, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sortNodeIDs(ids)
	for _, id := range ids {
		entry := make([]byte, 12)
		binary.LittleEndian.PutUint64(entry[0:8], id)
		binary.LittleEndian.PutUint32(entry[8:12], entries[id])
		buf = append(buf, entry...)
	}
	return buf
}

func decodeDocLengths(buf []byte) (map[event.NodeID]uint32, float32) {
	out := make(map[event.NodeID]uint32)
	if len(buf) < 8 {
		return out, 0
	}
	count := binary.LittleEndian.Uint32(buf[0:4])
	avg := float32frombits(binary.LittleEndian.Uint32(buf[4:8]))
	pos := 8
	for i := uint32(0); i < count; i++ {
		if pos+12 > len(buf) {
			break
		}
		id := binary.LittleEndian.Uint64(buf[pos : pos+8])
		length := binary.LittleEndian.Uint32(buf[pos+8 : pos+12])
		out[id] = length
		pos += 12
	}
	return out, avg
}

// decodeIndexBlock walks every tag in buf, dispatching known tags and
// skipping unknown ones by their declared length, per spec §4.1.
func decodeIndexBlock(buf []byte) decodedIndexes {
	var di decodedIndexes
	pos := 0
	for pos+5 <= len(buf) {
		tag := buf[pos]
		length := binary.LittleEndian.Uint32(buf[pos+1 : pos+5])
		pos += 5
		if pos+int(length) > len(buf) {
			break
		}
		payload := buf[pos : pos+int(length)]
		pos += int(length)

		switch tag {
		case TagTypeIndex:
			di.typeIndex = decodeTypeIndex(payload)
		case TagTemporalIndex:
			di.temporal = decodeTemporalIndex(payload)
		case TagSessionIndex:
			di.session = decodeSessionIndex(payload)
		case TagClusterMap:
			k, dim, centroids, members := decodeClusterMap(payload)
			di.clusterK, di.clusterDim, di.clusterCentroids, di.clusterMembers = k, dim, centroids, members
			di.hasClusterMap = true
		case TagTermIndex:
			di.termPostings = decodeTermIndex(payload)
			di.hasTermIndex = true
		case TagDocLengths:
			lengths, avg := decodeDocLengths(payload)
			di.docLengths, di.docLengthsAvg = lengths, avg
			di.hasDocLengths = true
		default:
			// Unknown tag: already skipped by advancing pos past length.
		}
	}
	return di
}
