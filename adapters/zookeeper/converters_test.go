package zookeeper

import (
	"strings"
	"testing"
	"unicode"

	"myregistry/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const testRoot = "/myregistry"

func TestToSessionNode(t *testing.T) {
	tests := []struct {
		name string
		app  domain.Application
		want string
	}{
		{
			name: "plain",
			app:  domain.Application{Name: "svc-a", Host: "10.0.0.1", Port: 8080, State: "UP", StartTime: 100, LastRecover: 200},
			want: "/myregistry/instances/svc-a/10.0.0.1:8080?internalHost=&lastRecover=200&startTime=100&state=UP",
		},
		{
			name: "internal host",
			app:  domain.Application{Name: "svc-a", Host: "10.0.0.1", InternalHost: "192.168.0.1", Port: 8080, State: "UP", StartTime: 1, LastRecover: 1},
			want: "/myregistry/instances/svc-a/10.0.0.1:8080?internalHost=192.168.0.1&lastRecover=1&startTime=1&state=UP",
		},
		{
			name: "reserved characters are escaped",
			app:  domain.Application{Name: "a b?c%", Host: "h?x", Port: 1, State: "a&b=c", StartTime: 1, LastRecover: 1},
			want: "/myregistry/instances/a%20b%3Fc%25/h%3Fx:1?internalHost=&lastRecover=1&startTime=1&state=a%26b%3Dc",
		},
		{
			name: "dot name",
			app:  domain.Application{Name: "..", Host: "h", Port: 1, State: "UP"},
			want: "/myregistry/instances/%2E%2E/h:1?internalHost=&lastRecover=0&startTime=0&state=UP",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToSessionNode(testRoot, tt.app)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			back, ok := FromSessionNode(testRoot, got)
			require.True(t, ok)
			assert.Equal(t, tt.app, back)
		})
	}
}

func TestToSessionNode_Invalid(t *testing.T) {
	_, err := ToSessionNode(testRoot, domain.Application{Name: "", Host: "h", Port: 1})
	require.ErrorIs(t, err, domain.ErrInvalidApplication)
}

func TestFromSessionNode_Rejects(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{name: "wrong prefix", path: "/other/instances/svc/h:1?internalHost=&lastRecover=1&startTime=1&state=UP"},
		{name: "app node only", path: "/myregistry/instances/svc"},
		{name: "too deep", path: "/myregistry/instances/svc/x/h:1?internalHost=&lastRecover=1&startTime=1&state=UP"},
		{name: "no query", path: "/myregistry/instances/svc/h:1"},
		{name: "no port separator", path: "/myregistry/instances/svc/h?internalHost=&lastRecover=1&startTime=1&state=UP"},
		{name: "bad port", path: "/myregistry/instances/svc/h:abc?internalHost=&lastRecover=1&startTime=1&state=UP"},
		{name: "port out of range", path: "/myregistry/instances/svc/h:70000?internalHost=&lastRecover=1&startTime=1&state=UP"},
		{name: "missing startTime", path: "/myregistry/instances/svc/h:1?internalHost=&lastRecover=1&state=UP"},
		{name: "missing lastRecover", path: "/myregistry/instances/svc/h:1?internalHost=&startTime=1&state=UP"},
		{name: "missing state", path: "/myregistry/instances/svc/h:1?internalHost=&lastRecover=1&startTime=1"},
		{name: "bad startTime", path: "/myregistry/instances/svc/h:1?internalHost=&lastRecover=1&startTime=x&state=UP"},
		{name: "bad escape in name", path: "/myregistry/instances/%zz/h:1?internalHost=&lastRecover=1&startTime=1&state=UP"},
		{name: "bad escape in query", path: "/myregistry/instances/svc/h:1?internalHost=%zz&lastRecover=1&startTime=1&state=UP"},
		{name: "empty host", path: "/myregistry/instances/svc/:1?internalHost=&lastRecover=1&startTime=1&state=UP"},
		{name: "empty", path: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				_, ok := FromSessionNode(testRoot, tt.path)
				assert.False(t, ok)
			})
		})
	}
}

func TestFromSessionNode_MissingInternalHostKey(t *testing.T) {
	app, ok := FromSessionNode(testRoot, "/myregistry/instances/svc/h:1?lastRecover=2&startTime=1&state=UP")
	require.True(t, ok)
	assert.Equal(t, "", app.InternalHost)
	assert.Equal(t, int64(2), app.LastRecover)
}

func TestFromSessionNode_IPv6Host(t *testing.T) {
	app := domain.Application{Name: "svc", Host: "::1", Port: 8080, State: "UP"}
	p, err := ToSessionNode(testRoot, app)
	require.NoError(t, err)

	back, ok := FromSessionNode(testRoot, p)
	require.True(t, ok)
	assert.Equal(t, app, back)
}

func TestAppNode(t *testing.T) {
	p := ToAppNode(testRoot, "a b")
	assert.Equal(t, "/myregistry/instances/a%20b", p)

	name, ok := fromAppNode(testRoot, p)
	require.True(t, ok)
	assert.Equal(t, "a b", name)

	_, ok = fromAppNode(testRoot, "/myregistry/instances")
	assert.False(t, ok)
}

var segmentRunes = rapid.RuneFrom([]rune("abcXYZ019 &=:?%.+-_~@$,;#[]"), unicode.Han, unicode.Cyrillic)

func segment() *rapid.Generator[string] {
	return rapid.StringOfN(segmentRunes, 1, 24, -1)
}

func TestSessionNode_RoundTrip(t *testing.T) {
	rapid.Check(t, func(r *rapid.T) {
		app := domain.Application{
			Name:        segment().Draw(r, "name"),
			Host:        segment().Draw(r, "host"),
			Port:        rapid.IntRange(1, 65535).Draw(r, "port"),
			State:       rapid.StringOfN(segmentRunes, 0, 8, -1).Draw(r, "state"),
			StartTime:   rapid.Int64Range(0, 1<<52).Draw(r, "startTime"),
			LastRecover: rapid.Int64Range(0, 1<<52).Draw(r, "lastRecover"),
		}
		if rapid.Bool().Draw(r, "hasInternalHost") {
			app.InternalHost = segment().Draw(r, "internalHost")
		}

		p, err := ToSessionNode(testRoot, app)
		if err != nil {
			r.Fatalf("encode %+v: %v", app, err)
		}
		if strings.Count(p, "/") != 4 {
			r.Fatalf("unexpected segment count in %q", p)
		}
		back, ok := FromSessionNode(testRoot, p)
		if !ok {
			r.Fatalf("decode %q failed", p)
		}
		if back != app {
			r.Fatalf("round trip mismatch: %+v != %+v", back, app)
		}
	})
}
