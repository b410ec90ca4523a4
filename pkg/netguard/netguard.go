// Package netguard builds HTTP clients for user supplied URLs that refuse to
// reach loopback, private and link-local addresses.
package netguard

import (
	"errors"
	"net"
	"net/http"
	"syscall"
	"time"
)

var ErrBlockedAddress = errors.New("address is not publicly routable")

// IsPrivate reports addresses that must not be dialled on behalf of a tenant.
func IsPrivate(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified() || ip.IsMulticast()
}

// Dialer checks the resolved address right before connecting, so DNS answers
// that change between lookup and dial are covered too.
func Dialer() *net.Dialer {
	return &net.Dialer{
		Timeout: 5 * time.Second,
		Control: func(_, address string, _ syscall.RawConn) error {
			host, _, err := net.SplitHostPort(address)
			if err != nil {
				return err
			}
			if ip := net.ParseIP(host); ip == nil || IsPrivate(ip) {
				return ErrBlockedAddress
			}
			return nil
		},
	}
}

// Transport is a clone of the default transport dialling through Dialer.
// Proxies are disabled since they would dial on our behalf.
func Transport() *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = Dialer().DialContext
	transport.Proxy = nil
	return transport
}

func Client(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout, Transport: Transport()}
}
