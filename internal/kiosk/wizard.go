package kiosk

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/wacdo-pos/kiosk/internal/cart"
	"github.com/wacdo-pos/kiosk/internal/wizard"
)

func (s *Session) wizardCommand(ctx context.Context, cmd string, args []string) error {
	if s.menu != nil {
		return s.menuCommand(ctx, cmd, args)
	}
	return s.drinkCommand(cmd, args)
}

func (s *Session) menuCommand(ctx context.Context, cmd string, args []string) error {
	w := s.menu
	var err error
	switch cmd {
	case "pick":
		err = s.menuPick(ctx, args)
	case "next":
		err = w.NextDrink()
	case "prev":
		err = w.PrevDrink()
	case "confirm":
		var d cart.Descriptor
		if d, err = w.Confirm(); err == nil {
			s.cart.AddItem(d)
			s.menu = nil
			s.printf("added %s (%s)\n", d.Name, d.MenuSelection)
			return nil
		}
	case "cancel":
		w.Cancel()
		s.menu = nil
		s.printf("menu cancelled\n")
		return nil
	default:
		return errWizardOpen
	}
	if err != nil {
		return err
	}
	s.showMenuStep()
	return nil
}

func (s *Session) menuPick(ctx context.Context, args []string) error {
	w := s.menu
	switch step := w.Step().(type) {
	case wizard.ChooseMenuType:
		i, err := index(args, len(wizard.MenuTypes))
		if err != nil {
			return err
		}
		return w.ChooseMenuType(wizard.MenuTypes[i])
	case wizard.ChooseSide:
		i, err := index(args, len(wizard.Sides))
		if err != nil {
			return err
		}
		if err := w.ChooseSide(ctx, wizard.Sides[i]); err != nil {
			s.log.Warn("load drinks", zap.Error(err))
			s.showMenuStep()
			return err
		}
		return nil
	case wizard.ChooseDrink:
		i, err := index(args, len(step.Drinks))
		if err != nil {
			return err
		}
		return w.PickDrink(i)
	}
	return wizard.ErrWrongStep
}

func (s *Session) drinkCommand(cmd string, args []string) error {
	w := s.drink
	switch cmd {
	case "size":
		if len(args) != 1 {
			return errBadArgument
		}
		size, ok := cart.ParseDrinkSize(args[0])
		if !ok {
			return wizard.ErrSizeRequired
		}
		if err := w.SelectSize(size); err != nil {
			return err
		}
	case "more":
		w.Increment()
	case "less":
		w.Decrement()
	case "confirm":
		if err := w.Confirm(s.cart); err != nil {
			return err
		}
		d := w.Descriptor()
		s.drink = nil
		s.printf("added %s - %s x%d\n", d.Name, d.DrinkSize, w.Quantity())
		return nil
	case "cancel":
		w.Cancel()
		s.drink = nil
		s.printf("drink cancelled\n")
		return nil
	default:
		return errWizardOpen
	}
	s.showDrink()
	return nil
}

func (s *Session) showMenuStep() {
	switch step := s.menu.Step().(type) {
	case wizard.ChooseMenuType:
		s.printf("%s: choose your menu\n", s.menu.Product().Name)
		for i, t := range wizard.MenuTypes {
			s.printf("  %d. %s\n", i+1, t)
		}
	case wizard.ChooseSide:
		s.printf("%s: choose your side\n", step.MenuType)
		for i, side := range wizard.Sides {
			s.printf("  %d. %s\n", i+1, side)
		}
	case wizard.ChooseDrink:
		if len(step.Drinks) == 0 {
			s.printf("no drinks available, cancel to go back\n")
			return
		}
		s.printf("choose your drink (next/prev/pick n, then confirm)\n")
		for i, d := range step.Drinks {
			marker := " "
			if i == step.Index {
				marker = ">"
			}
			s.printf(" %s%d. %s\n", marker, i+1, d.Name)
		}
	}
}

func (s *Session) showDrink() {
	w := s.drink
	size := string(w.Size())
	if size == "" {
		size = "choose 30cl or 50cl"
	}
	line := w.Product().Name + "  size: " + size + "  quantity: " + strconv.Itoa(w.Quantity())
	if w.CanConfirm() {
		line += "  unit " + money(w.Descriptor().UnitPrice)
	}
	s.printf("%s\n", line)
}
