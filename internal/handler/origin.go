package handler

import (
	"net/http"
	"net/url"
	"strings"
)

// sameOrigin 允许没有 Origin 头的请求（非浏览器客户端、同源导航），
// 带 Origin 时其 host 必须与请求的 Host 一致
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}
