package fetch

import (
	"time"

	"github.com/sagernet/sing-fetch/common/byteformats"
	"github.com/sagernet/sing-fetch/common/json/badoption"
	"github.com/sagernet/sing-fetch/common/resource"
	F "github.com/sagernet/sing-fetch/protocol/fetch"

	"github.com/sirupsen/logrus"
)

const (
	DefaultPort        = 3000
	DefaultPollTimeout = 50 * time.Millisecond
	DefaultKeepAlive   = 30 * time.Second
)

type ServerOptions struct {
	Host           string           `json:"host,omitempty"`
	Port           uint16           `json:"port,omitempty"`
	Root           string           `json:"root,omitempty"`
	XZ             bool             `json:"xz,omitempty"`
	Framing        F.Framing        `json:"framing,omitempty"`
	BufferSize     byteformats.Size `json:"buffer_size,omitempty"`
	MaxRequestSize byteformats.Size `json:"max_request_size,omitempty"`

	// Resolver overrides Root and XZ when set.
	Resolver resource.Resolver `json:"-"`
	Logger   *logrus.Entry     `json:"-"`
}

func (o ServerOptions) resolver() resource.Resolver {
	if o.Resolver != nil {
		return o.Resolver
	}
	root := o.Root
	if root == "" {
		root = "."
	}
	var resourceOptions []resource.Option
	if o.XZ {
		resourceOptions = append(resourceOptions, resource.WithXZ())
	}
	return resource.Dir(root, resourceOptions...)
}

type ClientOptions struct {
	Host          string             `json:"host,omitempty"`
	Port          uint16             `json:"port,omitempty"`
	Framing       F.Framing          `json:"framing,omitempty"`
	BufferSize    byteformats.Size   `json:"buffer_size,omitempty"`
	MaxBufferSize byteformats.Size   `json:"max_buffer_size,omitempty"`
	PollTimeout   badoption.Duration `json:"poll_timeout,omitempty"`
	DialTimeout   badoption.Duration `json:"dial_timeout,omitempty"`

	Logger *logrus.Entry `json:"-"`
}
