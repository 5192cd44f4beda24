package zookeeper

import (
	"net/url"
	"strconv"
	"strings"

	"myregistry/domain"
)

// FromSessionNode decodes a path produced by ToSessionNode. It reports false for anything that
// is not a well-formed session node under root, and never panics.
func FromSessionNode(root, p string) (domain.Application, bool) {
	rest, ok := strings.CutPrefix(p, instancesPath(root)+"/")
	if !ok {
		return domain.Application{}, false
	}
	appSeg, instanceSeg, ok := strings.Cut(rest, "/")
	if !ok || strings.Contains(instanceSeg, "/") {
		return domain.Application{}, false
	}
	name, err := url.PathUnescape(appSeg)
	if err != nil {
		return domain.Application{}, false
	}

	hostPort, rawQuery, ok := strings.Cut(instanceSeg, "?")
	if !ok {
		return domain.Application{}, false
	}
	i := strings.LastIndexByte(hostPort, ':')
	if i < 0 {
		return domain.Application{}, false
	}
	host, err := url.PathUnescape(hostPort[:i])
	if err != nil {
		return domain.Application{}, false
	}
	port, err := strconv.Atoi(hostPort[i+1:])
	if err != nil {
		return domain.Application{}, false
	}

	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return domain.Application{}, false
	}
	if !q.Has(keyStartTime) || !q.Has(keyLastRecover) || !q.Has(keyState) {
		return domain.Application{}, false
	}
	startTime, err := strconv.ParseInt(q.Get(keyStartTime), 10, 64)
	if err != nil {
		return domain.Application{}, false
	}
	lastRecover, err := strconv.ParseInt(q.Get(keyLastRecover), 10, 64)
	if err != nil {
		return domain.Application{}, false
	}

	app := domain.Application{
		Name:         name,
		Host:         host,
		InternalHost: q.Get(keyInternalHost),
		Port:         port,
		State:        q.Get(keyState),
		StartTime:    startTime,
		LastRecover:  lastRecover,
	}
	if app.Validate() != nil {
		return domain.Application{}, false
	}
	return app, true
}

// fromAppNode returns the application name encoded in an app node path.
func fromAppNode(root, p string) (string, bool) {
	seg, ok := strings.CutPrefix(p, instancesPath(root)+"/")
	if !ok || seg == "" || strings.Contains(seg, "/") {
		return "", false
	}
	name, err := url.PathUnescape(seg)
	if err != nil {
		return "", false
	}
	return name, true
}
