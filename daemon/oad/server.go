// Copyright (C) 2019-2024 Algorand, Inc.
// This file is part of go-onlineaccounts
//
// go-onlineaccounts is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// go-onlineaccounts is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with go-onlineaccounts.  If not, see <https://www.gnu.org/licenses/>.

package oad

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/algorand/go-deadlock"

	"github.com/algorand/go-onlineaccounts/config"
	"github.com/algorand/go-onlineaccounts/crypto"
	"github.com/algorand/go-onlineaccounts/logging"
	"github.com/algorand/go-onlineaccounts/network"
	"github.com/algorand/go-onlineaccounts/onlineaccounts"
	"github.com/algorand/go-onlineaccounts/util/timers"
)

// maxHeaderBytes bounds request headers; the API takes no large headers.
const maxHeaderBytes = 4096

// Server runs the online accounts service of a node and fronts it with the
// inspection HTTP API.
type Server struct {
	RootPath string
	// Hub is the network the node joins; a private hub is created when nil.
	Hub *network.LoopbackHub
	// Log defaults to logging.Base().
	Log logging.Logger

	cfg       config.Local
	clock     *timers.AdjustedClock
	local     onlineaccounts.StaticParticipants
	shares    *onlineaccounts.RewardShareSet
	registry  *onlineaccounts.Registry
	handler   *onlineaccounts.Handler
	service   *onlineaccounts.Service
	net       *network.LoopbackNode
	http      *http.Server
	listener  net.Listener
	serveDone chan error
}

// Initialize wires the node from its configuration. Local keys are loaded
// from RootPath and registered as reward shares.
func (s *Server) Initialize(cfg config.Local, consensus config.ConsensusParams) error {
	if s.Log == nil {
		s.Log = logging.Base()
		s.Log.SetJSONFormatter()
	}
	s.Log.SetLevel(logging.Level(cfg.BaseLoggerDebugLevel))
	setupDeadlockLogger(s.Log)

	// configure the deadlock detector library
	switch {
	case cfg.DeadlockDetection > 0:
		deadlock.Opts.Disable = false
	case cfg.DeadlockDetection < 0:
		deadlock.Opts.Disable = true
	}
	if !deadlock.Opts.Disable {
		deadlock.Opts.DeadlockTimeout = time.Second * time.Duration(cfg.DeadlockDetectionThreshold)
	}

	selector, err := onlineaccounts.MakeWindowSelector(consensus)
	if err != nil {
		return fmt.Errorf("Initialize() err: %w", err)
	}
	s.local, err = LoadParticipants(s.RootPath)
	if err != nil {
		return fmt.Errorf("Initialize() cannot load keys: %w", err)
	}

	s.cfg = cfg
	s.clock = timers.MakeAdjustedClock(0)
	s.shares = onlineaccounts.MakeRewardShareSet(s.LocalKeys()...)
	s.registry = onlineaccounts.MakeRegistry(selector, s.clock, s.Log)
	verifier := onlineaccounts.MakeVerifier(s.registry, s.shares, s.Log)

	if s.Hub == nil {
		s.Hub = network.MakeLoopbackHub()
	}
	s.net = s.Hub.Join(s.RootPath)
	s.handler = onlineaccounts.MakeHandler(s.registry, verifier, cfg, s.Log)
	s.service = onlineaccounts.NewService(s.local, s.shares, s.registry, s.net, cfg, s.Log)
	s.handler.SetRelay(s.service)
	s.net.RegisterHandlers(s.handler.Handlers())

	s.Log.Infof("online accounts node initialized with %d local keys, activation %d", len(s.local), selector.Activation())
	return nil
}

// Registry implements APINode.
func (s *Server) Registry() *onlineaccounts.Registry {
	return s.registry
}

// LocalKeys implements APINode.
func (s *Server) LocalKeys() []crypto.PublicKey {
	out := make([]crypto.PublicKey, 0, len(s.local))
	for _, k := range s.local {
		out = append(out, k.PublicKey)
	}
	return out
}

// RewardShares returns the registered reward-share set.
func (s *Server) RewardShares() *onlineaccounts.RewardShareSet {
	return s.shares
}

// Clock returns the network-adjusted clock; NTP correction sets its offset.
func (s *Server) Clock() *timers.AdjustedClock {
	return s.clock
}

// helper handles startup of tcp listener
func makeListener(addr string) (net.Listener, error) {
	if addr == "" {
		addr = ":http"
	}
	return net.Listen("tcp", addr)
}

// Start launches the workers, the service loop and the HTTP API. It does not block.
func (s *Server) Start() error {
	listener, err := makeListener(s.cfg.EndpointAddress)
	if err != nil {
		return fmt.Errorf("could not listen on %s: %w", s.cfg.EndpointAddress, err)
	}
	s.listener = listener
	s.http = &http.Server{
		Addr:           listener.Addr().String(),
		Handler:        Handler(s, s.Log),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: maxHeaderBytes,
	}

	s.handler.Start()
	s.service.Start()

	s.serveDone = make(chan error, 1)
	go func() {
		err := s.http.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.serveDone <- err
	}()
	s.Log.Infof("online accounts API listening on %s", s.Addr())
	return nil
}

// Addr returns the address the API listens on.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run starts the server and blocks until it fails or a termination signal arrives.
func (s *Server) Run() error {
	if err := s.Start(); err != nil {
		return err
	}
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	signal.Ignore(syscall.SIGHUP)
	defer signal.Stop(c)

	select {
	case err := <-s.serveDone:
		s.stopServices()
		return err
	case sig := <-c:
		s.Log.Infof("Exiting on %v", sig)
		return s.Stop()
	}
}

func (s *Server) stopServices() {
	s.service.Stop()
	s.handler.Stop()
}

// Stop shuts the API down and halts the service.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.http.Shutdown(ctx)
	s.stopServices()
	if serveErr := <-s.serveDone; err == nil {
		err = serveErr
	}
	return err
}
