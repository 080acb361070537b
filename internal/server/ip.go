package server

import (
	"net"
	"net/http"
	"strings"
)

// remoteIP 는 admin 요청자의 IP 를 access log 용으로 추출한다.
// 우선순위:
//  1. X-Forwarded-For 의 첫 번째 유효 IP (앞단 proxy 가 붙인 원 요청자)
//  2. RemoteAddr
//
// admin 포트는 내부망에서만 열리므로 private 대역도 그대로 돌려준다.
func remoteIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, part := range strings.Split(xff, ",") {
			if ip := safeParseIP(part); ip != nil {
				return ip.String()
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip := safeParseIP(host); ip != nil {
		return ip.String()
	}
	return ""
}

// safeParseIP 는 공백/빈 값/잘못된 값에 nil 을 돌려준다.
func safeParseIP(s string) net.IP {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return net.ParseIP(s)
}
