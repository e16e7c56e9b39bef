package detection

import (
	"net"

	"surveyguard/internal/models"
)

// Representative datacenter/cloud ranges. Respondents answering surveys
// from a cloud VM are overwhelmingly automation. A production deployment
// would swap this for an IP intelligence feed.
var datacenterCIDRs = []string{
	// AWS
	"3.0.0.0/8", "13.0.0.0/8", "18.0.0.0/8", "34.0.0.0/8", "35.0.0.0/8",
	"52.0.0.0/8", "54.0.0.0/8",
	// Google Cloud
	"34.64.0.0/10", "35.184.0.0/13", "104.154.0.0/15", "104.196.0.0/14",
	// Azure
	"13.64.0.0/11", "20.0.0.0/8", "40.64.0.0/10", "52.224.0.0/11",
	// DigitalOcean
	"104.131.0.0/16", "134.209.0.0/16", "138.68.0.0/16", "139.59.0.0/16",
	"142.93.0.0/16", "157.245.0.0/16", "159.65.0.0/16", "159.89.0.0/16",
	"161.35.0.0/16", "165.22.0.0/16", "167.71.0.0/16", "167.99.0.0/16",
	"178.128.0.0/16", "188.166.0.0/16", "206.189.0.0/16",
	// Hetzner
	"5.9.0.0/16", "88.99.0.0/16", "95.216.0.0/14", "135.181.0.0/16",
	"138.201.0.0/16", "144.76.0.0/16", "148.251.0.0/16", "176.9.0.0/16",
	// OVH
	"51.38.0.0/16", "51.68.0.0/16", "51.75.0.0/16", "51.77.0.0/16",
	"54.36.0.0/16", "54.37.0.0/16", "137.74.0.0/16", "139.99.0.0/16",
	"144.217.0.0/16", "149.56.0.0/16", "158.69.0.0/16", "192.99.0.0/16",
	// Vultr / Linode
	"45.32.0.0/16", "45.63.0.0/16", "45.76.0.0/16", "45.77.0.0/16",
	"104.156.224.0/19", "108.61.0.0/16", "139.162.0.0/16", "172.104.0.0/15",
}

var datacenterNets []*net.IPNet

func init() {
	for _, cidr := range datacenterCIDRs {
		if _, ipNet, err := net.ParseCIDR(cidr); err == nil {
			datacenterNets = append(datacenterNets, ipNet)
		}
	}
}

// isDatacenterIP checks if an IP belongs to a known datacenter range.
func isDatacenterIP(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, ipNet := range datacenterNets {
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}

// scoreNetwork rates where the session came from. Not applicable without a
// parseable public IP; private/loopback addresses say nothing about the
// respondent.
func scoreNetwork(f *SessionFeatures) MethodResult {
	session := f.Session
	if session == nil || session.IPAddress == "" {
		return notApplicable(0)
	}

	ip := net.ParseIP(session.IPAddress)
	if ip == nil {
		return notApplicable(0)
	}
	if ip.IsPrivate() || ip.IsLoopback() || ip.IsUnspecified() {
		return notApplicable(1)
	}

	var flags []models.Flag
	score := 0.1 // baseline for an ordinary public address

	if isDatacenterIP(session.IPAddress) {
		score = 0.8
		flags = append(flags, models.Flag{
			Name:       models.PatternDatacenterIP,
			Confidence: 0.8,
			Observed:   1,
			Threshold:  1,
			Detail:     "session originates from a datacenter IP range",
		})
	}

	return MethodResult{
		Score:      score,
		Applicable: true,
		SampleSize: 1,
		Flags:      flags,
	}
}
