package webproxy

import "fmt"

type CacheStatusStatus string

const (
	CacheStatusHit CacheStatusStatus = "hit"
	CacheStatusFwd CacheStatusStatus = "fwd"
)

type CacheStatusFwdReason string

const (
	// The request was rejected before the cache was consulted.
	CacheStatusFwdBypass CacheStatusFwdReason = "bypass"

	// The cache did not contain any responses that matched the
	// request URI.
	CacheStatusFwdUriMiss CacheStatusFwdReason = "uri-miss"
)

// CacheStatus describes how the cache handled one transaction,
// using the vocabulary of the Cache-Status header field (RFC 9211).
type CacheStatus struct {
	status    CacheStatusStatus
	fwdReason CacheStatusFwdReason
	stored    bool
	detail    string
}

func (cs *CacheStatus) Hit() {
	cs.status = CacheStatusHit
}

func (cs *CacheStatus) Forward(reason CacheStatusFwdReason) {
	cs.status = CacheStatusFwd
	cs.fwdReason = reason
}

func (cs *CacheStatus) Stored() {
	cs.stored = true
}

func (cs *CacheStatus) Detail(detail string) {
	cs.detail = detail
}

func (cs *CacheStatus) IsHit() bool {
	return cs.status == CacheStatusHit
}

func (cs *CacheStatus) String() string {
	if cs.status == "" {
		return ""
	}
	status := fmt.Sprintf("WebProxy; %s", cs.status)
	if cs.status == CacheStatusFwd && cs.fwdReason != "" {
		status = fmt.Sprintf("%s=%s", status, cs.fwdReason)
	}
	if cs.stored {
		status = status + "; stored"
	}
	if cs.detail != "" {
		status = status + "; detail=" + cs.detail
	}
	return status
}
