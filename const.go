package hftcore

const (
	// Version is the current version of the core library.
	Version = "v1.0.0"

	// SnapshotSchemaVersion is bumped when BookSnapshot changes in a backward-incompatible way.
	SnapshotSchemaVersion = 1

	// DefaultOrderCapacity is the order slot count used when BookOptions.OrderCapacity is zero.
	DefaultOrderCapacity = 4096

	// DefaultLevelCapacity is the price level slot count used when BookOptions.LevelCapacity is zero.
	DefaultLevelCapacity = 1024

	// DefaultUpdateCapacity is the notification ring size used by NewUpdateRing(0).
	DefaultUpdateCapacity = 8192

	// DefaultNotifyEvery samples add and cancel notifications. Must be a power of two.
	DefaultNotifyEvery = 64
)
