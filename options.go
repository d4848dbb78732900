package lazypdf

import (
	"github.com/rs/zerolog"

	"github.com/tsawler/lazypdf/chunked"
	"github.com/tsawler/lazypdf/document"
	"github.com/tsawler/lazypdf/internal/logger"
	"github.com/tsawler/lazypdf/manager"
	"github.com/tsawler/lazypdf/transport"
)

// Option configures how a document is opened
type Option func(*options)

type options struct {
	config           manager.Config
	chunkSize        int
	disableAutoFetch bool
	disableStreaming bool
	disableRanges    bool
	clientOptions    transport.ClientOptions
}

// defaultOptions returns the options used when none are given
func defaultOptions() *options {
	return &options{
		config: manager.Config{
			EvaluatorOptions: document.DefaultEvaluatorOptions(),
		},
		chunkSize:     chunked.DefaultChunkSize,
		clientOptions: transport.DefaultClientOptions(),
	}
}

func newOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.clientOptions.Logger == nil {
		o.clientOptions.Logger = o.config.Logger
	}
	return o
}

func (o *options) logger() *logger.Logger {
	return logger.OrNop(o.config.Logger)
}

// WithPassword sets the password tried when the document is encrypted
func WithPassword(password string) Option {
	return func(o *options) {
		o.config.Password = []byte(password)
	}
}

// WithDocBaseURL sets the base URL relative links in the document resolve
// against.
func WithDocBaseURL(u string) Option {
	return func(o *options) {
		o.config.DocBaseURL = u
	}
}

// WithDocID sets the session identifier used in logs
func WithDocID(id string) Option {
	return func(o *options) {
		o.config.DocID = id
	}
}

// WithEvaluatorOptions replaces the document options
func WithEvaluatorOptions(opts document.EvaluatorOptions) Option {
	return func(o *options) {
		o.config.EvaluatorOptions = opts
	}
}

// WithLogger logs through l
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.config.Logger = &logger.Logger{Logger: l}
	}
}

// WithChunkSize sets the size of the ranges that are fetched and tracked
func WithChunkSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.chunkSize = size
		}
	}
}

// WithoutAutoFetch only fetches ranges operations ask for
func WithoutAutoFetch() Option {
	return func(o *options) {
		o.disableAutoFetch = true
	}
}

// WithoutStreaming skips the background download of the whole body
func WithoutStreaming() Option {
	return func(o *options) {
		o.disableStreaming = true
	}
}

// WithoutRanges downloads remote documents whole, even when the server
// supports range requests.
func WithoutRanges() Option {
	return func(o *options) {
		o.disableRanges = true
	}
}

// WithClientOptions configures the HTTP client used by OpenURL
func WithClientOptions(opts transport.ClientOptions) Option {
	return func(o *options) {
		o.clientOptions = opts
	}
}
