package zookeeper

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"myregistry/domain"
)

// Query keys of a session node.
const (
	keyInternalHost = "internalHost"
	keyStartTime    = "startTime"
	keyLastRecover  = "lastRecover"
	keyState        = "state"
)

// ToSessionNode encodes app as
// {root}/instances/{name}/{host}:{port}?internalHost=..&lastRecover=..&startTime=..&state=..
// with name and host path-escaped and the query built by url.Values.Encode.
func ToSessionNode(root string, app domain.Application) (string, error) {
	if err := app.Validate(); err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set(keyInternalHost, app.InternalHost)
	q.Set(keyStartTime, strconv.FormatInt(app.StartTime, 10))
	q.Set(keyLastRecover, strconv.FormatInt(app.LastRecover, 10))
	q.Set(keyState, app.State)

	return fmt.Sprintf("%s/%s/%s:%d?%s",
		instancesPath(root), escapeSegment(app.Name), escapeSegment(app.Host), app.Port, q.Encode()), nil
}

// ToAppNode is the parent node holding every instance of name.
func ToAppNode(root, name string) string {
	return instancesPath(root) + "/" + escapeSegment(name)
}

// toNodePayload is the JSON document stored as the session node's data.
func toNodePayload(app domain.Application) ([]byte, error) {
	b, err := json.Marshal(app)
	if err != nil {
		return nil, fmt.Errorf("can't marshal application %s, err: %w", app.Name, err)
	}
	return b, nil
}

// escapeSegment path-escapes s. A bare "." or ".." would be rejected as a node name, so their
// dots are escaped too.
func escapeSegment(s string) string {
	e := url.PathEscape(s)
	if e == "." || e == ".." {
		return strings.ReplaceAll(e, ".", "%2E")
	}
	return e
}
