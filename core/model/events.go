package model

import (
	"fmt"
	"math/big"
	"strings"

	"tax-token-program/utils/generics/must"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const (
	EventTaxCollected    = "TaxCollected"
	EventDevFeeCollected = "DevFeeCollected"
	EventWalletSelected  = "WalletSelected"
)

// Indexed inputs come first; ParseEventLog maps topics onto inputs by position.
const ProgramEventABIJson = `[
{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"state","type":"address"},{"indexed":true,"internalType":"address","name":"from","type":"address"},{"indexed":true,"internalType":"address","name":"to","type":"address"},{"indexed":false,"internalType":"uint64","name":"amount","type":"uint64"}],"name":"TaxCollected","type":"event"},
{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"state","type":"address"},{"indexed":true,"internalType":"address","name":"from","type":"address"},{"indexed":true,"internalType":"address","name":"to","type":"address"},{"indexed":false,"internalType":"uint64","name":"amount","type":"uint64"}],"name":"DevFeeCollected","type":"event"},
{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"state","type":"address"},{"indexed":true,"internalType":"address","name":"holder","type":"address"},{"indexed":false,"internalType":"uint64","name":"index","type":"uint64"},{"indexed":false,"internalType":"uint64","name":"counter","type":"uint64"}],"name":"WalletSelected","type":"event"}
]`

var (
	ProgramEventABI = must.Must(abi.JSON(strings.NewReader(ProgramEventABIJson)))

	TopicTaxCollected    = "0x" + Keccak256("TaxCollected(address,address,address,uint64)")
	TopicDevFeeCollected = "0x" + Keccak256("DevFeeCollected(address,address,address,uint64)")
	TopicWalletSelected  = "0x" + Keccak256("WalletSelected(address,address,uint64,uint64)")
)

type FeeEvent struct {
	Name   string
	State  common.Address
	From   common.Address
	To     common.Address
	Amount uint64
}

type SelectionEvent struct {
	State   common.Address
	Holder  common.Address
	Index   uint64
	Counter uint64
}

// NewEventLog builds a log for eventName. indexed fills the topics after the
// event id, data is packed into the non-indexed inputs.
func NewEventLog(parsedAbi abi.ABI, eventName string, emitter common.Address, indexed []common.Address, data ...interface{}) (*types.Log, error) {
	event, exists := parsedAbi.Events[eventName]
	if !exists {
		return nil, fmt.Errorf("event '%s' not found", eventName)
	}

	packed, err := event.Inputs.NonIndexed().Pack(data...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack event data: %w", err)
	}

	topics := []common.Hash{event.ID}
	for _, addr := range indexed {
		topics = append(topics, common.BytesToHash(addr.Bytes()))
	}

	return &types.Log{
		Address: emitter,
		Topics:  topics,
		Data:    packed,
	}, nil
}

func NewFeeLog(eventName string, state, from, to common.Address, amount uint64) (*types.Log, error) {
	return NewEventLog(ProgramEventABI, eventName, state, []common.Address{state, from, to}, amount)
}

func NewSelectionLog(state, holder common.Address, index int, counter uint64) (*types.Log, error) {
	return NewEventLog(ProgramEventABI, EventWalletSelected, state, []common.Address{state, holder}, uint64(index), counter)
}

func ParseEventLog(parsedAbi abi.ABI, eventName string, logData *types.Log) (map[string]interface{}, error) {
	event, exists := parsedAbi.Events[eventName]
	if !exists {
		return nil, fmt.Errorf("event '%s' not found", eventName)
	}
	if len(logData.Topics) == 0 || logData.Topics[0] != event.ID {
		return nil, fmt.Errorf("log is not a '%s' event", eventName)
	}

	var err error
	eventData := make(map[string]interface{})
	err = parsedAbi.UnpackIntoMap(eventData, eventName, logData.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack event data: %w", err)
	}

	var indexed abi.Arguments
	for _, input := range event.Inputs {
		if input.Indexed {
			indexed = append(indexed, input)
		}
	}
	if len(logData.Topics)-1 != len(indexed) {
		return nil, fmt.Errorf("'%s' event has %d indexed inputs, log has %d topics", eventName, len(indexed), len(logData.Topics)-1)
	}

	for i, topic := range logData.Topics[1:] {
		eventData[indexed[i].Name] = topic
	}

	return eventData, nil
}

func ParseFeeEvent(eventName string, logData *types.Log) (*FeeEvent, error) {
	eventData, err := ParseEventLog(ProgramEventABI, eventName, logData)
	if err != nil {
		return nil, err
	}

	event := &FeeEvent{Name: eventName}
	if _state, ok := eventData["state"].(common.Hash); ok {
		event.State = common.BytesToAddress(_state[:])
	}
	if _from, ok := eventData["from"].(common.Hash); ok {
		event.From = common.BytesToAddress(_from[:])
	}
	if _to, ok := eventData["to"].(common.Hash); ok {
		event.To = common.BytesToAddress(_to[:])
	}
	if event.Amount, err = toUint64(eventData, "amount"); err != nil {
		return nil, err
	}

	return event, nil
}

func ParseSelectionEvent(logData *types.Log) (*SelectionEvent, error) {
	eventData, err := ParseEventLog(ProgramEventABI, EventWalletSelected, logData)
	if err != nil {
		return nil, err
	}

	event := &SelectionEvent{}
	if _state, ok := eventData["state"].(common.Hash); ok {
		event.State = common.BytesToAddress(_state[:])
	}
	if _holder, ok := eventData["holder"].(common.Hash); ok {
		event.Holder = common.BytesToAddress(_holder[:])
	}
	if event.Index, err = toUint64(eventData, "index"); err != nil {
		return nil, err
	}
	if event.Counter, err = toUint64(eventData, "counter"); err != nil {
		return nil, err
	}

	return event, nil
}

func toUint64(eventData map[string]interface{}, name string) (uint64, error) {
	switch n := eventData[name].(type) {
	case uint64:
		return n, nil
	case *big.Int:
		if !n.IsUint64() {
			return 0, fmt.Errorf("field '%s' does not fit uint64: %s", name, n)
		}
		return n.Uint64(), nil
	default:
		return 0, fmt.Errorf("field '%s' has unexpected type %T", name, n)
	}
}
