package predict

import "time"

type Config struct {
	RequestTimeout time.Duration `envconfig:"DTS_PREDICT_REQUEST_TIMEOUT" default:"30s"`
	// Upper bound of an /invocations body in bytes
	MaxBodyBytes int64 `envconfig:"DTS_PREDICT_MAX_BODY_BYTES" default:"65536"`
}
