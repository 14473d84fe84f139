package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

const (
	MilestoneModeExact    = "exact"
	MilestoneModeCrossing = "crossing"
)

// 签到链接中的路径片段，二维码内容形如 {public_url}/checkin/{token}
const CheckinPathSegment = "/checkin/"
