package osint

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/miekg/dns"
)

type HTTPGetter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// TXTResolver returns the TXT strings published at name. A name without
// records (NXDOMAIN, NODATA) yields nil, nil; only lookup failures are errors.
type TXTResolver interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// CertificatePeeker returns the expiry of the leaf certificate served by host.
type CertificatePeeker interface {
	PeekCertificate(ctx context.Context, host string) (time.Time, error)
}

const maxResponseBytes = 64 << 20

type HTTPClient struct {
	Client    *http.Client
	UserAgent string
}

func NewHTTPClient() *HTTPClient {
	return &HTTPClient{Client: &http.Client{}, UserAgent: "tilt-dashboard/1.0"}
}

func (h *HTTPClient) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: unexpected status %s", url, resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
}

// DNSResolver queries a single upstream server over UDP, retrying over TCP
// when the answer is truncated.
type DNSResolver struct {
	udp    *dns.Client
	tcp    *dns.Client
	server string
}

const fallbackResolver = "1.1.1.1:53"

// NewDNSResolver uses server when set, else the first nameserver from
// /etc/resolv.conf, else a public resolver.
func NewDNSResolver(server string, timeout time.Duration) *DNSResolver {
	if server == "" {
		server = fallbackResolver
		if cc, err := dns.ClientConfigFromFile("/etc/resolv.conf"); err == nil && len(cc.Servers) > 0 {
			server = net.JoinHostPort(cc.Servers[0], cc.Port)
		}
	}
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}
	return &DNSResolver{
		udp:    &dns.Client{Net: "udp", Timeout: timeout},
		tcp:    &dns.Client{Net: "tcp", Timeout: timeout},
		server: server,
	}
}

func (r *DNSResolver) Server() string { return r.server }

func (r *DNSResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), dns.TypeTXT)
	m.RecursionDesired = true

	in, _, err := r.udp.ExchangeContext(ctx, m, r.server)
	if err == nil && in.Truncated {
		in, _, err = r.tcp.ExchangeContext(ctx, m, r.server)
	}
	if err != nil {
		return nil, fmt.Errorf("TXT %s: %w", name, err)
	}

	switch in.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, nil
	default:
		return nil, fmt.Errorf("TXT %s: %s", name, dns.RcodeToString[in.Rcode])
	}

	var out []string
	for _, rr := range in.Answer {
		if txt, ok := rr.(*dns.TXT); ok {
			out = append(out, strings.Join(txt.Txt, ""))
		}
	}
	return out, nil
}

// TLSPeeker completes a handshake on port 443 without verifying the chain,
// so expired or otherwise invalid certificates can still be graded.
type TLSPeeker struct {
	Port string
}

func (p TLSPeeker) PeekCertificate(ctx context.Context, host string) (time.Time, error) {
	port := p.Port
	if port == "" {
		port = "443"
	}
	d := tls.Dialer{
		NetDialer: &net.Dialer{},
		Config: &tls.Config{
			ServerName:         host,
			InsecureSkipVerify: true, // inspection only, nothing is sent
			MinVersion:         tls.VersionTLS10,
		},
	}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return time.Time{}, err
	}
	defer conn.Close()

	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		return time.Time{}, errors.New("not a TLS connection")
	}
	certs := tlsConn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return time.Time{}, fmt.Errorf("%s presented no certificate", host)
	}
	return certs[0].NotAfter, nil
}
