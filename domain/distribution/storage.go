package distribution

// StorageInfo represents remote storage quota information
type StorageInfo struct {
	TotalBytes     int64
	UsedBytes      int64
	AvailableBytes int64
	Unlimited      bool // Drive reports no limit for some workspace accounts
}

// HasSpaceFor returns true if an artifact of the given size fits
func (s StorageInfo) HasSpaceFor(bytes int64) bool {
	return s.Unlimited || s.AvailableBytes >= bytes
}
