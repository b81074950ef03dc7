package domain

type RoomKey string

// Room identifies a shared watch session: the key names the transport
// topic, MediaToken is the playback token the room was associated with.
type Room struct {
	Key        RoomKey
	MediaToken string
}
