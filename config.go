package gmysql

import (
	"crypto/tls"
	"fmt"
	"time"

	"github.com/wuxiubo/go-mysql-core/internal/protocol"
)

// SSLBag is the pooled set of SSL options: if any of Ca/Cert/Key is set,
// all three become required and the SSL client flag is set on Open,
// per spec.md §6 "SSL keys are pooled into one SSL bag".
type SSLBag struct {
	Ca         string
	Cert       string
	Key        string
	VerifyCert bool
}

func (b *SSLBag) any() bool {
	return b != nil && (b.Ca != "" || b.Cert != "" || b.Key != "")
}

// Config is the connection core's configuration, populated from a
// map[string]any via ApplyConfig (spec.md §6 "Configuration keys") or
// directly by an embedder constructing one in Go. There is deliberately no
// DSN string form: spec.md's configuration keys mirror the original
// Python driver's MySQLConnection.config(), not a connection URL.
type Config struct {
	Host           string
	Port           int
	UnixSocket     string
	User           string
	Password       string
	DBName         string
	Charset        string
	Collation      string
	Autocommit     bool
	TimeZone       string
	SQLMode        string
	GetWarnings    bool
	RaiseOnWarning bool
	ConnTimeout    time.Duration
	ClientFlags    protocol.ClientFlag
	Compress       bool
	Buffered       bool
	Raw            bool
	SSL            *SSLBag
	UseUnicode     bool
	ForceIPv6      bool
	ConverterClass Converter

	// TLS, when non-nil, overrides the *tls.Config built from SSL; set by
	// embedders who need custom certificate verification logic the SSL
	// bag's fields can't express.
	TLS *tls.Config
}

// DefaultConfig returns a Config populated with spec.md §6's documented
// defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:        "127.0.0.1",
		Port:        3306,
		Charset:     "utf8",
		ConnTimeout: 0,
		UseUnicode:  true,
	}
}

var configAliases = map[string]string{
	"db":              "database",
	"passwd":          "password",
	"connect_timeout": "connection_timeout",
}

var isolationLevels = map[string]string{
	"readuncommitted": "READ UNCOMMITTED",
	"readcommitted":   "READ COMMITTED",
	"repeatableread":  "REPEATABLE READ",
	"serializable":    "SERIALIZABLE",
}

// ApplyConfig validates and merges params into cfg, performing the alias
// translation, unknown-key rejection, and SSL-bag pooling spec.md §6
// describes. A "dsn" key is explicitly rejected: this core takes
// structured configuration only.
func ApplyConfig(cfg *Config, params map[string]interface{}) error {
	ssl := &SSLBag{}
	sslSeen := false

	for rawKey, value := range params {
		key := rawKey
		if alias, ok := configAliases[rawKey]; ok {
			key = alias
		}

		switch key {
		case "dsn":
			return newError(KindNotSupported, "the 'dsn' configuration key is not supported; use structured keys")
		case "host":
			cfg.Host = asString(value)
		case "port":
			p, err := asInt(value)
			if err != nil {
				return newError(KindProgramming, "port: "+err.Error())
			}
			cfg.Port = p
		case "unix_socket":
			cfg.UnixSocket = asString(value)
		case "user":
			cfg.User = asString(value)
		case "password":
			cfg.Password = asString(value)
		case "database":
			cfg.DBName = asString(value)
		case "charset":
			cfg.Charset = asString(value)
		case "collation":
			cfg.Collation = asString(value)
		case "autocommit":
			cfg.Autocommit = asBool(value)
		case "time_zone":
			cfg.TimeZone = asString(value)
		case "sql_mode":
			cfg.SQLMode = asString(value)
		case "get_warnings":
			cfg.GetWarnings = asBool(value)
		case "raise_on_warnings":
			// Setting raise_on_warnings=true implies get_warnings=true;
			// setting it false also clears get_warnings (spec.md §7).
			cfg.RaiseOnWarning = asBool(value)
			if cfg.RaiseOnWarning {
				cfg.GetWarnings = true
			} else {
				cfg.GetWarnings = false
			}
		case "connection_timeout":
			d, err := asDuration(value)
			if err != nil {
				return newError(KindProgramming, "connection_timeout: "+err.Error())
			}
			cfg.ConnTimeout = d
		case "client_flags":
			f, err := asInt(value)
			if err != nil {
				return newError(KindProgramming, "client_flags: "+err.Error())
			}
			cfg.ClientFlags = protocol.ClientFlag(f)
		case "compress":
			cfg.Compress = asBool(value)
		case "buffered":
			cfg.Buffered = asBool(value)
		case "raw":
			cfg.Raw = asBool(value)
		case "use_unicode":
			cfg.UseUnicode = asBool(value)
		case "force_ipv6":
			cfg.ForceIPv6 = asBool(value)
		case "converter_class":
			conv, ok := value.(Converter)
			if !ok {
				return newError(KindProgramming, "converter_class: must implement the Converter interface")
			}
			cfg.ConverterClass = conv
		case "ssl_ca":
			ssl.Ca = asString(value)
			sslSeen = true
		case "ssl_cert":
			ssl.Cert = asString(value)
			sslSeen = true
		case "ssl_key":
			ssl.Key = asString(value)
			sslSeen = true
		case "ssl_verify_cert":
			ssl.VerifyCert = asBool(value)
			sslSeen = true
		default:
			return newError(KindProgramming, fmt.Sprintf("unknown configuration key %q", rawKey))
		}
	}

	if sslSeen {
		if ssl.Ca == "" || ssl.Cert == "" || ssl.Key == "" {
			return newError(KindProgramming, "ssl_ca, ssl_cert, and ssl_key are all required once any SSL key is set")
		}
		cfg.SSL = ssl
		cfg.ClientFlags |= protocol.ClientSSL
	}

	return nil
}

// NormalizeIsolationLevel matches level case-insensitively, with '-' or
// space separators, against the four canonical isolation levels
// (spec.md §4.6, §8 invariant 6).
func NormalizeIsolationLevel(level string) (string, bool) {
	key := ""
	for _, r := range level {
		switch r {
		case '-', ' ', '_':
			continue
		default:
			if r >= 'A' && r <= 'Z' {
				r += 'a' - 'A'
			}
			key += string(r)
		}
	}
	canon, ok := isolationLevels[key]
	return canon, ok
}

func asString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}

func asBool(v interface{}) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val == "1" || val == "true" || val == "yes"
	case int:
		return val != 0
	default:
		return false
	}
}

func asInt(v interface{}) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case float64:
		return int(val), nil
	case string:
		var n int
		if _, err := fmt.Sscanf(val, "%d", &n); err != nil {
			return 0, fmt.Errorf("not an integer: %q", val)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("not an integer: %v", v)
	}
}

func asDuration(v interface{}) (time.Duration, error) {
	switch val := v.(type) {
	case time.Duration:
		return val, nil
	case string:
		return time.ParseDuration(val)
	default:
		n, err := asInt(v)
		if err != nil {
			return 0, err
		}
		return time.Duration(n) * time.Second, nil
	}
}
