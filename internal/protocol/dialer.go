package protocol

import (
	"fmt"
	"net"
	"strings"

	"golang.org/x/net/proxy"

	"github.com/ofs-tools/ofs-client/internal/config"
	"github.com/ofs-tools/ofs-client/internal/constants"
)

// NewDialer returns the dialer for the configured proxy mode. With mode
// "none" the connection is dialed directly. With "socks5" every host goes
// through the proxy except those matched by no_proxy.
func NewDialer(cfg config.ProxyConfig) (proxy.ContextDialer, error) {
	direct := &net.Dialer{}

	switch strings.ToLower(cfg.Mode) {
	case "", constants.ProxyModeNone:
		return direct, nil

	case constants.ProxyModeSOCKS5:
		if cfg.Address == "" {
			return nil, config.ErrMissingProxyAddr
		}
		var auth *proxy.Auth
		if cfg.Username != "" {
			auth = &proxy.Auth{User: cfg.Username, Password: cfg.Password}
		}
		socks, err := proxy.SOCKS5("tcp", cfg.Address, auth, direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create socks5 dialer: %w", err)
		}

		var d proxy.Dialer = socks
		if strings.TrimSpace(cfg.NoProxy) != "" {
			perHost := proxy.NewPerHost(socks, direct)
			perHost.AddFromString(cfg.NoProxy)
			d = perHost
		}

		cd, ok := d.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("socks5 dialer does not support contexts")
		}
		return cd, nil

	default:
		return nil, fmt.Errorf("unsupported proxy mode: %s", cfg.Mode)
	}
}
