package shodan

import (
	"fmt"
	"strings"
)

// Location is the geolocation Shodan attaches to a match.
type Location struct {
	CountryName string   `json:"country_name,omitempty"`
	City        string   `json:"city,omitempty"`
	RegionCode  string   `json:"region_code,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
}

// Match is one banner from /shodan/host/search.
type Match struct {
	IP        string    `json:"ip_str"`
	Port      int       `json:"port"`
	Hostnames []string  `json:"hostnames"`
	Location  *Location `json:"location"`
	Org       string    `json:"org"`
	Data      string    `json:"data"`
	Timestamp string    `json:"timestamp"`
	Transport string    `json:"transport"`
	Product   string    `json:"product"`
}

// SearchResponse is the body of /shodan/host/search.
type SearchResponse struct {
	Matches []Match `json:"matches"`
	Total   int64   `json:"total"`
}

// AccessType is how a discovered camera can be reached.
type AccessType string

const (
	AccessMJPEG   AccessType = "MJPEG"
	AccessRTSP    AccessType = "RTSP"
	AccessHTTP    AccessType = "HTTP"
	AccessUnknown AccessType = "Unknown"
)

// Webcam is a discovered remote camera endpoint.
type Webcam struct {
	IP         string     `json:"ip"`
	Port       int        `json:"port"`
	URL        string     `json:"url"`
	Hostname   string     `json:"hostname,omitempty"`
	Location   *Location  `json:"location,omitempty"`
	Org        string     `json:"org,omitempty"`
	Product    string     `json:"product,omitempty"`
	LastSeen   string     `json:"last_seen"`
	AccessType AccessType `json:"access_type"`
}

var mjpegEndpoints = []string{
	"/mjpeg",
	"/video.mjpg",
	"/video.cgi",
	"/snapshot.jpg",
	"/image.jpg",
	"/cam.jpg",
}

// ClassifyAccess infers the access type from a banner.
func ClassifyAccess(m Match) AccessType {
	data := strings.ToLower(m.Data)
	switch {
	case strings.Contains(data, "mjpeg") || strings.Contains(data, "multipart/x-mixed-replace"):
		return AccessMJPEG
	case m.Port == 554 || strings.Contains(data, "rtsp"):
		return AccessRTSP
	case m.Port == 80 || m.Port == 8080 || m.Port == 8081:
		return AccessHTTP
	default:
		return AccessUnknown
	}
}

// StreamURL builds the most likely viewing URL for a match.
func StreamURL(m Match, access AccessType) string {
	switch access {
	case AccessMJPEG:
		for _, endpoint := range mjpegEndpoints {
			if strings.Contains(m.Data, endpoint) {
				return fmt.Sprintf("http://%s:%d%s", m.IP, m.Port, endpoint)
			}
		}
		return fmt.Sprintf("http://%s:%d/mjpeg", m.IP, m.Port)
	case AccessRTSP:
		return fmt.Sprintf("rtsp://%s:%d/", m.IP, m.Port)
	default:
		return fmt.Sprintf("http://%s:%d/", m.IP, m.Port)
	}
}

// ToWebcam converts a match into a webcam endpoint. Matches without an
// address are skipped.
func ToWebcam(m Match) (Webcam, bool) {
	if strings.TrimSpace(m.IP) == "" {
		return Webcam{}, false
	}
	access := ClassifyAccess(m)
	cam := Webcam{
		IP:         m.IP,
		Port:       m.Port,
		URL:        StreamURL(m, access),
		Location:   m.Location,
		Org:        m.Org,
		Product:    m.Product,
		LastSeen:   m.Timestamp,
		AccessType: access,
	}
	if len(m.Hostnames) > 0 {
		cam.Hostname = m.Hostnames[0]
	}
	return cam, true
}
