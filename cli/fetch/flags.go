package main

import (
	"os"
	"time"

	"github.com/sagernet/sing-fetch/common/byteformats"
	E "github.com/sagernet/sing-fetch/common/exceptions"
	"github.com/sagernet/sing-fetch/common/json"
	"github.com/sagernet/sing-fetch/common/json/badoption"
	F "github.com/sagernet/sing-fetch/protocol/fetch"
	"github.com/sagernet/sing-fetch/transport/fetch"

	"github.com/spf13/cobra"
)

const (
	defaultHost     = "localhost"
	defaultFilename = "test.txt"
	defaultRoot     = "."
)

type flags struct {
	Host           string             `json:"host"`
	Port           uint16             `json:"port"`
	Filename       string             `json:"filename"`
	Root           string             `json:"root"`
	BufferSize     byteformats.Size   `json:"buffer_size"`
	MaxBufferSize  byteformats.Size   `json:"max_buffer_size"`
	MaxRequestSize byteformats.Size   `json:"max_request_size"`
	PollTimeout    badoption.Duration `json:"poll_timeout"`
	DialTimeout    badoption.Duration `json:"dial_timeout"`
	Framing        F.Framing          `json:"framing"`
	XZ             bool               `json:"xz"`
	Verbose        bool               `json:"verbose"`

	ConfigFile      string `json:"-"`
	framingName     string
	pollTimeoutFlag time.Duration
	dialTimeoutFlag time.Duration
}

func (f *flags) bindCommon(cmd *cobra.Command) {
	flagSet := cmd.PersistentFlags()
	flagSet.StringVarP(&f.ConfigFile, "config", "c", "", "Use a configuration file.")
	flagSet.StringVar(&f.Host, "host", "", "Set the hostname or IP to connect to or listen on. (default \"localhost\")")
	flagSet.Uint16VarP(&f.Port, "port", "p", 0, "Set the port number. (default 3000)")
	flagSet.StringVar(&f.framingName, "framing", "", "Set how a request name ends: raw or line. (default \"raw\")")
	flagSet.Var(&f.BufferSize, "buffer-size", "Set the initial buffer size.")
	flagSet.BoolVarP(&f.Verbose, "verbose", "v", false, "Enable verbose mode.")
}

func (f *flags) bindClient(cmd *cobra.Command) {
	flagSet := cmd.Flags()
	flagSet.StringVarP(&f.Filename, "filename", "f", "", "Set the name to request. (default \"test.txt\")")
	flagSet.Var(&f.MaxBufferSize, "max-buffer-size", "Set the largest response accepted.")
	flagSet.DurationVar(&f.pollTimeoutFlag, "poll-timeout", 0, "Set how long one poll may block. (default 50ms)")
	flagSet.DurationVar(&f.dialTimeoutFlag, "dial-timeout", 0, "Set how long connecting may take. (default 10s)")
}

func (f *flags) bindServer(cmd *cobra.Command) {
	flagSet := cmd.Flags()
	flagSet.StringVarP(&f.Root, "root", "r", "", "Set the directory files are served from. (default \".\")")
	flagSet.BoolVar(&f.XZ, "xz", false, "Serve name.xz decompressed when name is missing.")
	flagSet.Var(&f.MaxRequestSize, "max-request-size", "Set the longest request name accepted.")
}

// load merges the configuration file under the command line: a flag set on
// the command line always wins, then the file, then the defaults.
func (f *flags) load(cmd *cobra.Command) error {
	if f.framingName != "" {
		framing, err := F.ParseFraming(f.framingName)
		if err != nil {
			return err
		}
		f.Framing = framing
	}
	if f.pollTimeoutFlag != 0 {
		f.PollTimeout = badoption.Duration(f.pollTimeoutFlag)
	}
	if f.dialTimeoutFlag != 0 {
		f.DialTimeout = badoption.Duration(f.dialTimeoutFlag)
	}
	if f.ConfigFile != "" {
		content, err := os.ReadFile(f.ConfigFile)
		if err != nil {
			return E.Cause(err, "read config file")
		}
		var fileFlags flags
		err = json.UnmarshalExtended(content, &fileFlags)
		if err != nil {
			return E.Cause(err, "decode config file")
		}
		f.merge(cmd, &fileFlags)
	}
	f.applyDefaults()
	return nil
}

func (f *flags) merge(cmd *cobra.Command, fileFlags *flags) {
	changed := cmd.Flags().Changed
	if !changed("host") {
		f.Host = fileFlags.Host
	}
	if !changed("port") {
		f.Port = fileFlags.Port
	}
	if !changed("filename") {
		f.Filename = fileFlags.Filename
	}
	if !changed("root") {
		f.Root = fileFlags.Root
	}
	if !changed("buffer-size") {
		f.BufferSize = fileFlags.BufferSize
	}
	if !changed("max-buffer-size") {
		f.MaxBufferSize = fileFlags.MaxBufferSize
	}
	if !changed("max-request-size") {
		f.MaxRequestSize = fileFlags.MaxRequestSize
	}
	if !changed("poll-timeout") {
		f.PollTimeout = fileFlags.PollTimeout
	}
	if !changed("dial-timeout") {
		f.DialTimeout = fileFlags.DialTimeout
	}
	if !changed("framing") {
		f.Framing = fileFlags.Framing
	}
	if !changed("xz") {
		f.XZ = fileFlags.XZ
	}
	if !changed("verbose") {
		f.Verbose = fileFlags.Verbose
	}
}

func (f *flags) applyDefaults() {
	if f.Host == "" {
		f.Host = defaultHost
	}
	if f.Port == 0 {
		f.Port = fetch.DefaultPort
	}
	if f.Filename == "" {
		f.Filename = defaultFilename
	}
	if f.Root == "" {
		f.Root = defaultRoot
	}
	if f.PollTimeout == 0 {
		f.PollTimeout = badoption.Duration(fetch.DefaultPollTimeout)
	}
}

func (f *flags) clientOptions() fetch.ClientOptions {
	return fetch.ClientOptions{
		Host:          f.Host,
		Port:          f.Port,
		Framing:       f.Framing,
		BufferSize:    f.BufferSize,
		MaxBufferSize: f.MaxBufferSize,
		PollTimeout:   f.PollTimeout,
		DialTimeout:   f.DialTimeout,
	}
}

func (f *flags) serverOptions() fetch.ServerOptions {
	return fetch.ServerOptions{
		Host:           f.Host,
		Port:           f.Port,
		Root:           f.Root,
		XZ:             f.XZ,
		Framing:        f.Framing,
		BufferSize:     f.BufferSize,
		MaxRequestSize: f.MaxRequestSize,
	}
}
