package quadstore

import "encoding/binary"

// Key layout:
//
//	v:<version>        -> JSON VersionInfo, the commit record
//	d:<version><seq>   -> msgpack Change, one per delta entry
//
// Integers are big-endian so keys sort numerically.
var (
	versionPrefix = []byte("v:")
	entryPrefix   = []byte("d:")
)

func versionKey(version uint64) []byte {
	key := make([]byte, 0, len(versionPrefix)+8)
	key = append(key, versionPrefix...)
	return binary.BigEndian.AppendUint64(key, version)
}

// versionFromKey decodes a key produced by versionKey.
func versionFromKey(key []byte) uint64 {
	return binary.BigEndian.Uint64(key[len(versionPrefix):])
}

// entryVersionPrefix is the prefix shared by all entries of one version.
func entryVersionPrefix(version uint64) []byte {
	key := make([]byte, 0, len(entryPrefix)+8)
	key = append(key, entryPrefix...)
	return binary.BigEndian.AppendUint64(key, version)
}

func entryKey(version, seq uint64) []byte {
	key := make([]byte, 0, len(entryPrefix)+16)
	key = append(key, entryVersionPrefix(version)...)
	return binary.BigEndian.AppendUint64(key, seq)
}

// lastVersionSeekKey sorts after every version key, for reverse iteration.
func lastVersionSeekKey() []byte {
	key := make([]byte, 0, len(versionPrefix)+9)
	key = append(key, versionPrefix...)
	for i := 0; i < 9; i++ {
		key = append(key, 0xFF)
	}
	return key
}
