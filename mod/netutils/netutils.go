package netutils

import (
	"net"
	"net/http"
	"strings"
)

/*
	Network Utilities

	Helpers for requester IP extraction and
	listening port checks
*/

// GetRequesterIP returns the client address of the request. Forwarding
// headers are honoured so the traffic log stays meaningful behind a proxy.
// The value is only used for logging, never for access decisions.
func GetRequesterIP(r *http.Request) string {
	ip := r.Header.Get("X-Real-Ip")
	if ip == "" {
		ip = r.Header.Get("X-Forwarded-For")
	}
	if ip == "" {
		ip = r.RemoteAddr
	}

	/*
		Possible values extracted by this point
		127.0.0.1:61001
		[::1]:61002
		127.0.0.1
		158.250.160.114,109.21.249.211

		We need just the first ip address
	*/
	requesterRawIp := ip
	if strings.Contains(requesterRawIp, ",") {
		//Trim off all the forwarder IPs
		requesterRawIp = strings.TrimSpace(strings.Split(requesterRawIp, ",")[0])
	}

	//Trim away the port number
	reqHost, _, err := net.SplitHostPort(requesterRawIp)
	if err == nil {
		requesterRawIp = reqHost
	}

	if strings.HasPrefix(requesterRawIp, "[") && strings.HasSuffix(requesterRawIp, "]") {
		requesterRawIp = requesterRawIp[1 : len(requesterRawIp)-1]
	}

	return requesterRawIp
}

// CheckIfPortOccupied reports whether the given listening address
// (e.g. ":8080" or "127.0.0.1:8080") can not be bound right now
func CheckIfPortOccupied(address string) bool {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return true
	}
	listener.Close()
	return false
}

// BrowsableURL converts a listening address into an URL that can be
// opened in a local browser
func BrowsableURL(address string) string {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return "http://" + address + "/"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + "/"
}
