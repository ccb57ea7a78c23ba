package clickhouse

import (
	"net/url"
	"testing"
	"time"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name   string
		cfg    ClientConfig
		scheme string
		query  map[string]string
	}{
		{
			name:   "native with timeouts",
			cfg:    ClientConfig{Host: "ch", Port: 9000, Database: "signals", User: "default", DialTimeout: 5 * time.Second, ReadTimeout: 10 * time.Second},
			scheme: "clickhouse",
			query:  map[string]string{"dial_timeout": "5s", "read_timeout": "10s"},
		},
		{
			name:   "http with async insert",
			cfg:    ClientConfig{Host: "ch", Port: 8123, Database: "signals", User: "u", Password: "p@ss", UseHTTP: true, AsyncInsert: true, WaitForAsync: true, MaxExecTime: 30 * time.Second},
			scheme: "http",
			query:  map[string]string{"async_insert": "1", "wait_for_async_insert": "1", "max_execution_time": "30"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(BuildDSN(tt.cfg))
			if err != nil {
				t.Fatalf("dsn does not parse: %v", err)
			}
			if u.Scheme != tt.scheme {
				t.Errorf("scheme = %q, want %q", u.Scheme, tt.scheme)
			}
			if u.Path != "/"+tt.cfg.Database {
				t.Errorf("path = %q", u.Path)
			}
			if pw, _ := u.User.Password(); pw != tt.cfg.Password {
				t.Errorf("password = %q, want %q", pw, tt.cfg.Password)
			}
			for k, v := range tt.query {
				if got := u.Query().Get(k); got != v {
					t.Errorf("%s = %q, want %q", k, got, v)
				}
			}
			if u.Query().Has("write_timeout") {
				t.Error("write_timeout must not be sent to the server")
			}
		})
	}
}

func TestNewClientRequiresHost(t *testing.T) {
	if _, err := NewClient(WithDatabase("signals")); err == nil {
		t.Fatal("expected error without host")
	}
}
