package server

import (
	"context"
	"log"
	"sync"

	"github.com/threadly-chat/threadly/internal/stats"
)

type ChatServer struct {
	log            *log.Logger
	stats          stats.StatsProvider
	clients        map[*Client]struct{}
	clientsLock    sync.Mutex
	joinChan       chan *clientEvent
	RegisterChan   chan *Client
	deRegisterChan chan *Client
	unloadRoomChan chan string
	rooms          map[string]*Room
	stop           chan struct{}
	done           chan struct{}
}

func NewChatServer(logger *log.Logger, sp stats.StatsProvider) (*ChatServer, error) {
	cs := &ChatServer{
		log:            logger,
		stats:          sp,
		joinChan:       make(chan *clientEvent, 256),
		clients:        make(map[*Client]struct{}),
		RegisterChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		unloadRoomChan: make(chan string, 64),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
		rooms:          make(map[string]*Room),
	}

	sp.RegisterMetric("ActiveConnections")
	sp.RegisterMetric("ActiveRooms")
	sp.RegisterMetric("TotalJoins")
	sp.RegisterMetric("TotalMessages")

	return cs, nil
}

func (cs *ChatServer) Run() {
	for {
		select {
		case joinMsg := <-cs.joinChan:
			room, ok := cs.rooms[joinMsg.env.Room]
			if !ok {
				// rooms are created on demand; the id is the trust boundary
				room = newRoom(joinMsg.env.Room, cs)
				cs.rooms[room.id] = room
				cs.stats.Incr("ActiveRooms")
				go room.start()
			}

			select {
			case room.joinChan <- joinMsg:
			default:
				cs.log.Printf("join channel full on room %q", room.id)
			}
		case client := <-cs.RegisterChan:
			cs.log.Println("adding connection")
			cs.addClient(client)
		case client := <-cs.deRegisterChan:
			cs.log.Println("removing connection")
			cs.removeClient(client)
		case id := <-cs.unloadRoomChan:
			r, ok := cs.rooms[id]
			if ok {
				cs.unloadRoom(r.id)

				done := make(chan string)
				r.exit <- exitReq{done: done}
				<-done
			}
		case <-cs.stop:
			cs.log.Println("shutting down rooms")
			for _, r := range cs.rooms {
				cs.log.Println("shutting down room", r.id)

				done := make(chan string)
				r.exit <- exitReq{done: done}
				<-done
			}

			close(cs.done)
			return
		}
	}
}

func (cs *ChatServer) RegisterClient(c *Client) {
	cs.RegisterChan <- c
}

func (cs *ChatServer) addClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	cs.clients[c] = struct{}{}
	cs.stats.Incr("ActiveConnections")
}

func (cs *ChatServer) removeClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	if _, ok := cs.clients[c]; ok {
		delete(cs.clients, c)
		cs.stats.Decr("ActiveConnections")
	}
}

func (cs *ChatServer) unloadRoom(roomId string) {
	if _, ok := cs.rooms[roomId]; ok {
		cs.log.Printf("removing room %q", roomId)
		delete(cs.rooms, roomId)
		cs.stats.Decr("ActiveRooms")
	}
}

func (cs *ChatServer) Shutdown(ctx context.Context) error {
	cs.log.Println("received shutdown signal")

	cs.clientsLock.Lock()
	for c := range cs.clients {
		close(c.stop)
	}
	cs.clientsLock.Unlock()

	close(cs.stop)

	select {
	case <-cs.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
