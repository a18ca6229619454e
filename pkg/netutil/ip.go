package netutil

import (
	"net"
)

// GetOutboundIP gets the locally preferred outbound IP address, falling back
// to the loopback address when no route is available
//
// From https://stackoverflow.com/questions/23558425/how-do-i-get-the-local-ip-address-in-go
func GetOutboundIP() net.IP {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return net.IPv4(127, 0, 0, 1)
	}
	defer conn.Close()

	return conn.LocalAddr().(*net.UDPAddr).IP
}
