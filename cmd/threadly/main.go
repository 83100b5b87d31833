package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/threadly-chat/threadly/internal/client"
)

var (
	serverURL string
	room      string
	username  string
	password  string
	register  bool
	dataDir   string
)

func main() {
	flag.StringVar(&serverURL, "server", "http://localhost:8000", "backend base URL")
	flag.StringVar(&room, "room", "", "chat room id (a connection id)")
	flag.StringVar(&username, "user", "", "username to log in with")
	flag.StringVar(&password, "pass", "", "password")
	flag.BoolVar(&register, "register", false, "register a new account instead of logging in")
	flag.StringVar(&dataDir, "data-dir", defaultDataDir(), "directory for cached session state")
	flag.Parse()

	logger := log.New(os.Stderr, "[threadly] ", log.LstdFlags)

	api := client.NewAPI(serverURL, logger)
	store, err := client.NewStore(dataDir, api, logger)
	if err != nil {
		logger.Fatal("store:", err)
	}

	identity, ok := store.Identity()
	if username != "" {
		if register {
			identity, err = store.Register(username, password)
		} else {
			identity, err = store.Login(username, password)
		}
		if err != nil {
			logger.Fatal("auth:", err)
		}
		ok = true
		fmt.Printf("logged in as %s\n", identity.Username)
	}

	if room == "" {
		if !ok {
			logger.Fatal("no cached identity; log in with -user/-pass")
		}
		listConnections(api, identity)
		return
	}

	runChat(logger, identity)
}

func listConnections(api *client.API, identity client.Identity) {
	conns, err := api.ActiveConnections(identity.Id)
	if err != nil {
		fmt.Fprintln(os.Stderr, "active connections:", err)
		os.Exit(1)
	}

	if len(conns) == 0 {
		fmt.Println("no active chats")
		return
	}

	for _, c := range conns {
		other := c.SecondaryName
		if c.SecondaryId == identity.Id {
			other = c.PrimaryName
		}
		fmt.Printf("%s\t%s\n", c.CommonId, other)
	}
}

func runChat(logger *log.Logger, identity client.Identity) {
	if identity.Username != "" {
		fmt.Printf("chatting in %s as %s\n", room, identity.Username)
	}

	session := client.NewSession(wsURL(serverURL), logger)
	msgLog := client.NewMessageLog()

	unsub := session.OnMessage(func(ev client.Event) {
		switch ev.Kind {
		case client.EventRoomJoined:
			fmt.Printf("joined room %s\n", ev.Room)
		case client.EventPeerJoined:
			fmt.Println("a user joined the room")
		case client.EventFailed:
			fmt.Fprintln(os.Stderr, ev.Text)
			os.Exit(1)
		case client.EventMessage:
			if m, ok := msgLog.Apply(ev); ok {
				fmt.Printf("> %s\n", m.Text)
			}
		}
	})
	defer unsub()
	defer session.Disconnect()
	defer msgLog.Clear()

	session.Connect()
	if err := session.Join(room); err != nil {
		logger.Fatal("join:", err)
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		m, err := msgLog.AppendLocal(text)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}

		if err := session.Send(room, m.Text, m.Id); err != nil {
			fmt.Fprintln(os.Stderr, "send:", err)
		}
	}
}

func wsURL(base string) string {
	u := strings.TrimSuffix(base, "/")
	u = strings.Replace(u, "https://", "wss://", 1)
	u = strings.Replace(u, "http://", "ws://", 1)
	return u + "/ws"
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".threadly"
	}
	return filepath.Join(dir, "threadly")
}
