package clickhouse

import (
	"errors"
	"net"
	"net/url"
	"strconv"
	"time"
)

// ClientConfig describes the series database. Zero fields take defaults.
type ClientConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	// UseHTTP selects the HTTP interface (8123) over the native one (9000).
	UseHTTP bool
	// AsyncInsert lets the server buffer the daily upserts; WaitForAsync
	// holds the insert until the buffer is flushed.
	AsyncInsert  bool
	WaitForAsync bool

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	MaxExecTime     time.Duration
}

func (c ClientConfig) withDefaults() (ClientConfig, error) {
	if c.Host == "" {
		return c, errors.New("host is required")
	}
	if c.Port == 0 {
		c.Port = 9000
		if c.UseHTTP {
			c.Port = 8123
		}
	}
	if c.Database == "" {
		c.Database = "default"
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 10
	}
	if c.MaxIdleConns <= 0 || c.MaxIdleConns > c.MaxOpenConns {
		c.MaxIdleConns = c.MaxOpenConns / 2
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = 5 * time.Minute
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	return c, nil
}

// dsn renders the connection string with escaped credentials. Settings are
// emitted in key order.
func (c ClientConfig) dsn() string {
	scheme := "clickhouse"
	if c.UseHTTP {
		scheme = "http"
	}
	u := url.URL{
		Scheme: scheme,
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Database,
	}

	q := url.Values{}
	if c.DialTimeout > 0 {
		q.Set("dial_timeout", c.DialTimeout.String())
	}
	if c.ReadTimeout > 0 {
		q.Set("read_timeout", c.ReadTimeout.String())
	}
	if c.MaxExecTime > 0 {
		q.Set("max_execution_time", strconv.Itoa(int(c.MaxExecTime.Seconds())))
	}
	if c.AsyncInsert {
		q.Set("async_insert", "1")
		if c.WaitForAsync {
			q.Set("wait_for_async_insert", "1")
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
