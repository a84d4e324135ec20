package ordinals

// Tags identify data fields in an inscription envelope. Unrecognized odd tags
// are ignored. Unrecognized even tags curse the inscription.
type Tag uint8

var (
	TagBody    = Tag(0)
	TagPointer = Tag(2)
	// TagUnbound is unrecognized
	TagUnbound = Tag(66)

	TagContentType     = Tag(1)
	TagParent          = Tag(3)
	TagMetadata        = Tag(5)
	TagMetaprotocol    = Tag(7)
	TagContentEncoding = Tag(9)
	TagDelegate        = Tag(11)
	// TagNop is unrecognized
	TagNop = Tag(255)
)

var allTags = map[Tag]struct{}{
	TagPointer: {},

	TagContentType:     {},
	TagParent:          {},
	TagMetadata:        {},
	TagMetaprotocol:    {},
	TagContentEncoding: {},
	TagDelegate:        {},
}

func (t Tag) IsValid() bool {
	_, ok := allTags[t]
	return ok
}

var chunkedTags = map[Tag]struct{}{
	TagMetadata: {},
}

func (t Tag) IsChunked() bool {
	_, ok := chunkedTags[t]
	return ok
}

// repeatableTags may appear multiple times without cursing the inscription.
var repeatableTags = map[Tag]struct{}{
	TagParent: {},
}

func (t Tag) IsRepeatable() bool {
	_, ok := repeatableTags[t]
	return ok
}

func (t Tag) Bytes() []byte {
	if t == TagBody {
		return []byte{} // body tag is empty data push
	}
	return []byte{byte(t)}
}
