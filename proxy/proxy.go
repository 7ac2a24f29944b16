// Package proxy rotates outgoing requests across a set of proxy servers.
package proxy

import (
	"errors"
	"net/http"
	"net/url"
	"sync/atomic"
)

type ProxyFunc func(*http.Request) (*url.URL, error)

type roundRobinSwitcher struct {
	proxyURLs []*url.URL
	index     uint32
}

func (r *roundRobinSwitcher) GetProxy(*http.Request) (*url.URL, error) {
	index := atomic.AddUint32(&r.index, 1) - 1
	return r.proxyURLs[index%uint32(len(r.proxyURLs))], nil
}

// RoundRobinSwitcher cycles through proxyURLs request by request. Every url
// must parse; a bad entry rejects the whole set.
func RoundRobinSwitcher(proxyURLs ...string) (ProxyFunc, error) {
	if len(proxyURLs) < 1 {
		return nil, errors.New("proxy url list is empty")
	}
	urls := make([]*url.URL, 0, len(proxyURLs))
	for _, u := range proxyURLs {
		parsed, err := url.Parse(u)
		if err != nil {
			return nil, err
		}
		urls = append(urls, parsed)
	}
	return (&roundRobinSwitcher{proxyURLs: urls}).GetProxy, nil
}
