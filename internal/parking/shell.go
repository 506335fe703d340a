package parking

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Shell is an interactive stdin front-end to the engine, useful for local
// poking without the HTTP server. The calling identity is supplied per
// command; there is no session.
type Shell struct {
	engine  *InstrumentedEngine
	scanner *bufio.Scanner
}

func NewShell(engine *InstrumentedEngine) *Shell {
	return &Shell{
		engine:  engine,
		scanner: bufio.NewScanner(os.Stdin),
	}
}

func (s *Shell) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !s.scanner.Scan() {
			break
		}

		input := strings.TrimSpace(s.scanner.Text())
		if input == "" {
			continue
		}

		s.processCommand(ctx, input)
	}
}

func (s *Shell) processCommand(ctx context.Context, input string) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return
	}

	switch parts[0] {
	case "park":
		s.handlePark(ctx, parts)
	case "exit":
		s.handleExit(ctx, parts)
	case "pay":
		s.handlePay(ctx, parts)
	case "quote":
		s.handleQuote(ctx, parts)
	case "slots":
		s.handleSlots(parts)
	case "rate":
		s.handleRate(ctx, parts)
	case "withdraw":
		s.handleWithdraw(ctx, parts)
	case "status":
		s.handleStatus()
	case "ticket":
		s.handleTicket(parts)
	case "help":
		s.printHelp()
	default:
		fmt.Printf("Unknown command: %s (try 'help')\n", parts[0])
	}
}

func parseCategory(vehicleArg, laneArg string) (VehicleType, LaneType, error) {
	vehicle, err := ParseVehicleType(vehicleArg)
	if err != nil {
		return 0, 0, err
	}
	lane, err := ParseLaneType(laneArg)
	if err != nil {
		return 0, 0, err
	}
	return vehicle, lane, nil
}

func (s *Shell) handlePark(ctx context.Context, parts []string) {
	if len(parts) < 4 || len(parts) > 5 {
		fmt.Println("Usage: park <holder> <vehicle> <lane> [license_plate]")
		return
	}

	vehicle, lane, err := parseCategory(parts[2], parts[3])
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}

	plate := ""
	if len(parts) == 5 {
		plate = parts[4]
	}

	ticket, err := s.engine.Enter(ctx, parts[1], vehicle, lane, plate, time.Now())
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}

	fmt.Printf("Ticket issued: id %d, category %s\n", ticket.ID, ticket.Category())
}

func (s *Shell) handleExit(ctx context.Context, parts []string) {
	if len(parts) != 3 {
		fmt.Println("Usage: exit <holder> <amount_tendered>")
		return
	}

	amount, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		fmt.Println("Invalid amount")
		return
	}

	receipt, err := s.engine.Exit(ctx, parts[1], time.Now(), amount)
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}

	fmt.Printf("Ticket %d retired, fee %d, change %d\n", receipt.Ticket.ID, receipt.Fee, receipt.Change)
}

func (s *Shell) handlePay(ctx context.Context, parts []string) {
	if len(parts) != 3 {
		fmt.Println("Usage: pay <ticket_id> <amount_tendered>")
		return
	}

	ticketID, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		fmt.Println("Invalid ticket id")
		return
	}

	amount, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		fmt.Println("Invalid amount")
		return
	}

	receipt, err := s.engine.ExitTicket(ctx, ticketID, time.Now(), amount)
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}

	fmt.Printf("Ticket %d retired, fee %d, change %d\n", receipt.Ticket.ID, receipt.Fee, receipt.Change)
}

func (s *Shell) handleQuote(ctx context.Context, parts []string) {
	if len(parts) != 2 {
		fmt.Println("Usage: quote <holder>")
		return
	}

	fee, err := s.engine.Quote(ctx, parts[1], time.Now())
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}

	fmt.Printf("Fee due now: %d\n", fee)
}

func (s *Shell) handleSlots(parts []string) {
	if len(parts) != 3 {
		fmt.Println("Usage: slots <vehicle> <lane>")
		return
	}

	vehicle, lane, err := parseCategory(parts[1], parts[2])
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}

	available, err := s.engine.Available(vehicle, lane)
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}

	fmt.Printf("%d\n", available)
}

func (s *Shell) handleRate(ctx context.Context, parts []string) {
	if len(parts) != 5 {
		fmt.Println("Usage: rate <caller> <vehicle> <lane> <new_rate>")
		return
	}

	vehicle, lane, err := parseCategory(parts[2], parts[3])
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}

	rate, err := strconv.ParseInt(parts[4], 10, 64)
	if err != nil {
		fmt.Println("Invalid rate")
		return
	}

	if err := s.engine.AdjustRate(ctx, parts[1], vehicle, lane, rate); err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}

	fmt.Printf("Rate for %s/%s set to %d\n", vehicle, lane, rate)
}

func (s *Shell) handleWithdraw(ctx context.Context, parts []string) {
	if len(parts) != 2 {
		fmt.Println("Usage: withdraw <caller>")
		return
	}

	amount, err := s.engine.Withdraw(ctx, parts[1])
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}

	fmt.Printf("Withdrawn: %d\n", amount)
}

func (s *Shell) handleStatus() {
	fmt.Println("Category\tCapacity\tOccupied\tAvailable\tRate/h")
	for _, cs := range s.engine.Status() {
		fmt.Printf("%s/%s\t%d\t\t%d\t\t%d\t\t%d\n",
			cs.Vehicle, cs.Lane, cs.Capacity, cs.Occupied, cs.Available, cs.RatePerHour)
	}

	stats := s.engine.Stats()
	fmt.Printf("Tickets issued: %d, total revenue: %d, balance: %d\n",
		stats.TicketsIssued, stats.TotalRevenue, stats.Balance)
}

func (s *Shell) handleTicket(parts []string) {
	if len(parts) != 2 {
		fmt.Println("Usage: ticket <id>")
		return
	}

	id, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		fmt.Println("Invalid ticket id")
		return
	}

	t, ok := s.engine.Ticket(id)
	if !ok {
		fmt.Println("Not found")
		return
	}

	state := "retired"
	if t.Active {
		state = "active"
	}
	fmt.Printf("Ticket %d: holder %s, category %s, %s, fee %d\n",
		t.ID, t.Holder, t.Category(), state, t.FeeCharged)
}

func (s *Shell) printHelp() {
	fmt.Println(`Commands:
  park <holder> <vehicle> <lane> [license_plate]
  exit <holder> <amount_tendered>
  pay <ticket_id> <amount_tendered>
  quote <holder>
  slots <vehicle> <lane>
  rate <caller> <vehicle> <lane> <new_rate>
  withdraw <caller>
  ticket <id>
  status`)
}
