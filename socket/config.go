/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package socket

import (
	"fmt"

	libval "github.com/go-playground/validator/v10"
	libdur "github.com/nabbar/golib/duration"
	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
	libsiz "github.com/nabbar/golib/size"

	libpro "github.com/nabbar/spmsg/protocol"
)

// Config assembles a socket declaratively, the way other components load
// from viper / JSON / YAML. Zero durations and sizes keep the defaults.
type Config struct {
	// Name identifies the socket in logs. Optional, generated if empty.
	Name string `mapstructure:"name" json:"name" yaml:"name"`

	// Protocol is the SP pattern name.
	Protocol string `mapstructure:"protocol" json:"protocol" yaml:"protocol" validate:"required,oneof=pair pub sub req rep push pull surveyor respondent bus"`

	// Raw switches the socket to raw mode for bridging devices.
	Raw bool `mapstructure:"raw" json:"raw" yaml:"raw"`

	// Bind lists endpoint URLs to listen on.
	Bind []string `mapstructure:"bind" json:"bind" yaml:"bind" validate:"omitempty,dive,required"`

	// Connect lists endpoint URLs to dial.
	Connect []string `mapstructure:"connect" json:"connect" yaml:"connect" validate:"omitempty,dive,required"`

	// SendTimeout bounds blocking sends; zero keeps blocking forever.
	SendTimeout libdur.Duration `mapstructure:"send_timeout" json:"send_timeout" yaml:"send_timeout"`

	// RecvTimeout bounds blocking receives; zero keeps blocking forever.
	RecvTimeout libdur.Duration `mapstructure:"recv_timeout" json:"recv_timeout" yaml:"recv_timeout"`

	// Linger bounds the outbound drain during close.
	Linger libdur.Duration `mapstructure:"linger" json:"linger" yaml:"linger"`

	// ReconnectInterval is the initial endpoint backoff.
	ReconnectInterval libdur.Duration `mapstructure:"reconnect_interval" json:"reconnect_interval" yaml:"reconnect_interval"`

	// ReconnectIntervalMax caps the endpoint backoff doubling.
	ReconnectIntervalMax libdur.Duration `mapstructure:"reconnect_interval_max" json:"reconnect_interval_max" yaml:"reconnect_interval_max"`

	// IPv4Only restricts tcp and ws resolution to IPv4.
	IPv4Only bool `mapstructure:"ipv4_only" json:"ipv4_only" yaml:"ipv4_only"`

	// MaxRecvSize caps the accepted inbound message size.
	MaxRecvSize libsiz.Size `mapstructure:"max_recv_size" json:"max_recv_size" yaml:"max_recv_size"`
}

// protoNames maps config names to SP ids.
var protoNames = map[string]libpro.ID{
	"pair":       libpro.Pair,
	"pub":        libpro.Pub,
	"sub":        libpro.Sub,
	"req":        libpro.Req,
	"rep":        libpro.Rep,
	"push":       libpro.Push,
	"pull":       libpro.Pull,
	"surveyor":   libpro.Surveyor,
	"respondent": libpro.Respondent,
	"bus":        libpro.Bus,
}

func (c Config) Validate() liberr.Error {
	err := libval.New().Struct(c)

	if e, ok := err.(*libval.InvalidValidationError); ok {
		return ErrorValidatorError.Error(e)
	}

	out := ErrorValidatorError.Error(nil)

	if err != nil {
		for _, e := range err.(libval.ValidationErrors) {
			//nolint goerr113
			out.Add(fmt.Errorf("config field '%s' is not validated by constraint '%s'", e.Field(), e.ActualTag()))
		}
	}

	if out.HasParent() {
		return out
	}

	return nil
}

// Socket validates the config, creates the socket, applies the options and
// attaches every configured endpoint.
func (c Config) Socket(defLog liblog.FuncLog) (Socket, liberr.Error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	dom := DomainSP
	if c.Raw {
		dom = DomainSPRaw
	}

	s, err := New(dom, protoNames[c.Protocol], defLog)
	if err != nil {
		return nil, err
	}

	if c.Name != "" {
		if err = s.SetOption(OptSocketName, c.Name); err != nil {
			_ = s.Close()
			return nil, err
		}
	}

	for opt, val := range c.optionValues() {
		if err = s.SetOption(opt, val); err != nil {
			_ = s.Close()
			return nil, err
		}
	}

	for _, u := range c.Bind {
		if _, err = s.Bind(u); err != nil {
			_ = s.Close()
			return nil, err
		}
	}

	for _, u := range c.Connect {
		if _, err = s.Connect(u); err != nil {
			_ = s.Close()
			return nil, err
		}
	}

	return s, nil
}

func (c Config) optionValues() map[Option]any {
	v := make(map[Option]any)

	if c.SendTimeout > 0 {
		v[OptSndTimeo] = c.SendTimeout.Time()
	}

	if c.RecvTimeout > 0 {
		v[OptRcvTimeo] = c.RecvTimeout.Time()
	}

	if c.Linger > 0 {
		v[OptLinger] = c.Linger.Time()
	}

	if c.ReconnectInterval > 0 {
		v[OptReconnectIvl] = c.ReconnectInterval.Time()
	}

	if c.ReconnectIntervalMax > 0 {
		v[OptReconnectIvlMax] = c.ReconnectIntervalMax.Time()
	}

	if c.IPv4Only {
		v[OptIPv4Only] = true
	}

	if c.MaxRecvSize > 0 {
		v[OptMaxRecvSize] = c.MaxRecvSize
	}

	return v
}
