// ABOUTME: TUI update helpers for server
// ABOUTME: Collects scheduler stats and client counters for the TUI
package server

import "sort"

// status snapshots scheduler and client state
func (s *Server) status() ServerStatus {
	s.clientsMu.RLock()
	clients := make([]ClientInfo, 0, len(s.clients))
	for _, client := range s.clients {
		client.mu.RLock()
		clients = append(clients, ClientInfo{
			Name:      client.Name,
			ID:        client.ID,
			Requests:  client.requests,
			Delivered: client.delivered,
		})
		client.mu.RUnlock()
	}
	s.clientsMu.RUnlock()

	sort.Slice(clients, func(i, j int) bool { return clients[i].Name < clients[j].Name })

	return ServerStatus{
		Name:    s.config.Name,
		Port:    s.config.Port,
		Queue:   s.sched.Stats(),
		Clients: clients,
	}
}

// updateTUI sends current server state to TUI
func (s *Server) updateTUI() {
	if s.tui == nil {
		return
	}
	s.tui.Update(s.status())
}
