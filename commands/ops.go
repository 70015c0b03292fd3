package commands

import (
	"errors"
	"net"
	"regexp"
	"strconv"
	"strings"
)

type Operation int

var portRegex = regexp.MustCompile("^[0-9]{1,5}$")

const (
	// Zero value of an unparsed command, never valid.
	DEFAULT = iota
	// Start mining, infinite loop until explicit stop.
	START
	// Stop mining completely.
	STOP
	// Mine exactly one block.
	MINE
	// Pull chains from all peers.
	SYNC
	// Add a new peer to this full node.
	ADD_PEER
	// Renove a peer by host and port.
	REMOVE_PEER
	// List all peers.
	LIST_PEER
	// Show the blockchain.
	SHOW
	// Register a vehicle by owner, license and port.
	REGISTER
	// Change the in-traffic time limit.
	TIME_LIMIT
	// Print node status.
	STATUS
)

// A command contains a operation and many arguments.
type Command struct {
	Op   Operation
	Args []string
}

func isPort(s string) bool {
	if !portRegex.MatchString(s) {
		return false
	}
	p, _ := strconv.Atoi(s)
	return p > 0 && p < 65536
}

func isNonNegative(s string) bool {
	v, err := strconv.Atoi(s)
	return err == nil && v >= 0
}

func (c Command) IsValid() bool {
	switch c.Op {
	case START, STOP, MINE, SYNC, LIST_PEER, STATUS:
		return len(c.Args) == 0
	case ADD_PEER, REMOVE_PEER:
		if len(c.Args) != 2 {
			return false
		}
		host := c.Args[0]
		return host != "" && !strings.ContainsAny(host, ",/ ") && isPort(c.Args[1])
	case SHOW, TIME_LIMIT:
		// depth or seconds must be a number.
		return len(c.Args) == 1 && isNonNegative(c.Args[0])
	case REGISTER:
		return len(c.Args) == 3 && c.Args[0] != "" && c.Args[1] != "" && isPort(c.Args[2])
	default:
		return false
	}
}

// Addr joins the host and port arguments of a peer command.
func (c Command) Addr() string {
	return net.JoinHostPort(c.Args[0], c.Args[1])
}

// IntArg returns the i-th argument as an int. Only valid after IsValid.
func (c Command) IntArg(i int) int {
	v, _ := strconv.Atoi(c.Args[i])
	return v
}

// From string, create
func CreateCommand(s string) (Command, error) {
	// split command by whitespace.
	ss := strings.Fields(s)
	if len(ss) == 0 {
		return Command{}, errors.New("command is empty")
	}
	cmd := Command{}
	switch ss[0] {
	case "start":
		cmd.Op = START
	case "stop":
		cmd.Op = STOP
	case "mine":
		cmd.Op = MINE
	case "sync":
		cmd.Op = SYNC
	case "add_peer":
		cmd.Op = ADD_PEER
	case "remove_peer":
		cmd.Op = REMOVE_PEER
	case "list_peer":
		cmd.Op = LIST_PEER
	case "show":
		cmd.Op = SHOW
	case "register":
		cmd.Op = REGISTER
	case "time_limit":
		cmd.Op = TIME_LIMIT
	case "status":
		cmd.Op = STATUS
	}
	cmd.Args = ss[1:]
	if !cmd.IsValid() {
		return Command{}, errors.New("invalid command")
	}
	return cmd, nil
}
