package chat

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/HimbeerserverDE/mt"
)

// An ItemHolder is a Participant that wields items.
// WieldedItem reports false if the hand is empty.
type ItemHolder interface {
	WieldedItem() (mt.Stack, bool)
}

const emptyHand = "Empty Hand"

// wielded returns the stack p wields.
// It reports false if the hand is empty.
func wielded(p Participant) (mt.Stack, bool, error) {
	holder, ok := p.(ItemHolder)
	if !ok {
		return mt.Stack{}, false, ErrNoItems
	}

	stack, ok := holder.WieldedItem()
	if !ok || stack.Item.Name == "" || stack.Item.Name == "air" {
		return mt.Stack{}, false, nil
	}

	return stack, true, nil
}

// itemLabel returns the display name of a stack
// followed by its size if it holds more than one item.
func itemLabel(stack mt.Stack) string {
	name := formatItemName(stack.Item.Name)
	if stack.Count > 1 {
		name += fmt.Sprintf(" x%d", stack.Count)
	}

	return name
}

func plainItem(p Participant) (string, error) {
	stack, ok, err := wielded(p)
	if err != nil {
		return "", err
	}

	if !ok {
		return "&7" + emptyHand + "&r", nil
	}

	return "&b" + itemLabel(stack) + "&r", nil
}

func richItem(p Participant) (Text, error) {
	stack, ok, err := wielded(p)
	if err != nil {
		return nil, err
	}

	if !ok {
		return Text{{Text: emptyHand, Color: ColorGray, Italic: true}}, nil
	}

	return Text{{
		Text:  "[" + itemLabel(stack) + "]",
		Color: ColorAqua,
		Hover: Colored("Item: ", ColorGray).Append(Colored(stack.Item.Name, ColorWhite)),
	}}, nil
}

// formatItemName turns an item string like default:diamond_pick
// into Diamond Pick.
func formatItemName(item string) string {
	if i := strings.LastIndexByte(item, ':'); i >= 0 {
		item = item[i+1:]
	}

	words := strings.Fields(strings.ReplaceAll(item, "_", " "))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}

	return strings.Join(words, " ")
}
