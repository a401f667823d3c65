package types

// ServiceKind names the per-service feature buckets a tier bundles.
type ServiceKind string

const (
	ServiceDrive       ServiceKind = "drive"
	ServiceBackups     ServiceKind = "backups"
	ServiceAntivirus   ServiceKind = "antivirus"
	ServiceMeet        ServiceKind = "meet"
	ServiceMail        ServiceKind = "mail"
	ServiceVPN         ServiceKind = "vpn"
	ServiceCleaner     ServiceKind = "cleaner"
	ServiceDarkMonitor ServiceKind = "darkMonitor"
	ServiceCLI         ServiceKind = "cli"
	ServiceRclone      ServiceKind = "rclone"
)

// AllServices lists every known service in a stable order. Iteration over
// this slice, never over maps, is what keeps tie-breaks deterministic.
var AllServices = []ServiceKind{
	ServiceDrive,
	ServiceBackups,
	ServiceAntivirus,
	ServiceMeet,
	ServiceMail,
	ServiceVPN,
	ServiceCleaner,
	ServiceDarkMonitor,
	ServiceCLI,
	ServiceRclone,
}

func (s ServiceKind) Valid() bool {
	for _, known := range AllServices {
		if s == known {
			return true
		}
	}
	return false
}
