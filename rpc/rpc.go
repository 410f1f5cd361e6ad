package rpc

import (
	"net"
	"net/rpc"

	"github.com/wfunc/codebattle/logger"
	"github.com/wfunc/codebattle/models"
	"github.com/wfunc/codebattle/monitor"
	"github.com/wfunc/codebattle/room"
	"github.com/wfunc/codebattle/services"
	"github.com/wfunc/codebattle/session"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server.
func NewServer(addr string) (*Server, error) {
	// Register the AdminService with the rpc package so it knows how to handle it.
	// We can do this here or in the main server startup.
	// For simplicity, we assume any service using this RPC server is registered elsewhere.

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if the error is due to the listener being closed.
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// AdminService exposes operational queries over net/rpc.
type AdminService struct {
	roomManager    *room.Manager
	sessionManager *session.Manager
	recordService  *services.RecordService
	monitor        *monitor.Monitor
}

// NewAdminService creates a new AdminService.
func NewAdminService(rm *room.Manager, sm *session.Manager, rs *services.RecordService, mon *monitor.Monitor) *AdminService {
	return &AdminService{
		roomManager:    rm,
		sessionManager: sm,
		recordService:  rs,
		monitor:        mon,
	}
}

// All RPC methods follow the net/rpc signature: exported method, exported
// arguments, second argument is a pointer, return type is error.

type StatusArgs struct{}

type StatusReply struct {
	Rooms            int
	PlayersInRooms   int
	Sessions         int
	UptimeSeconds    float64
	ArchivingEnabled bool
}

// Status reports live server counters.
func (as *AdminService) Status(args *StatusArgs, reply *StatusReply) error {
	reply.Rooms = as.roomManager.Count()
	reply.PlayersInRooms = as.roomManager.TotalPlayers()
	reply.Sessions = as.sessionManager.Count()
	reply.UptimeSeconds = as.monitor.Uptime().Seconds()
	reply.ArchivingEnabled = as.recordService.Enabled()
	return nil
}

type ListRoomsArgs struct{}

type ListRoomsReply struct {
	Rooms []room.RoomInfo
}

// ListRooms returns a summary of every active room.
func (as *AdminService) ListRooms(args *ListRoomsArgs, reply *ListRoomsReply) error {
	reply.Rooms = as.roomManager.List()
	return nil
}

type RecentMatchesArgs struct {
	Limit int
}

type RecentMatchesReply struct {
	Matches []models.MatchRecord
}

// RecentMatches returns the latest archived matches, newest first.
func (as *AdminService) RecentMatches(args *RecentMatchesArgs, reply *RecentMatchesReply) error {
	matches, err := as.recordService.RecentMatches(args.Limit)
	if err != nil {
		return err
	}
	reply.Matches = matches
	return nil
}

type PlayerStatsArgs struct {
	Username string
}

type PlayerStatsReply struct {
	Stats models.PlayerStats
}

// PlayerStats returns the aggregated record of one player by username.
func (as *AdminService) PlayerStats(args *PlayerStatsArgs, reply *PlayerStatsReply) error {
	stats, err := as.recordService.PlayerStats(args.Username)
	if err != nil {
		return err
	}
	reply.Stats = stats
	return nil
}
