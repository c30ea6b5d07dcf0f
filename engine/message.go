package engine

import (
	"go.uber.org/zap"

	"github.com/wippyai/rtti"
	"github.com/wippyai/rtti/errors"
	"github.com/wippyai/rtti/types"
)

// Dispatch delivers a message to every handler in the inheritance chain
// of the compound at obj, in the order resolved when the registry was
// built. Each handler receives the address of the sub-object declaring
// it. The first failing handler stops the chain.
func (e *Engine) Dispatch(t *types.Type, h rtti.Heap, obj uint32, message *types.Type, payload uint32) error {
	if t.Kind() != types.KindCompound {
		return errors.TypeMismatch(errors.PhaseMessage, t.Name(), "compound")
	}
	ci, err := e.info(errors.PhaseMessage, t)
	if err != nil {
		return err
	}

	handlers := ci.Handlers(message)
	if len(handlers) == 0 {
		e.logger.Debug("message not handled",
			zap.String("type", t.Name()),
			zap.String("message", message.Name()))
		return nil
	}
	for _, hd := range handlers {
		if err := hd.Fn(h, obj+hd.Offset, payload); err != nil {
			return errors.New(errors.PhaseMessage, errors.KindHandler).
				Type(t.Name()).
				Cause(err).
				Detail("%s handler for %s failed", hd.Owner.Name(), message.Name()).
				Build()
		}
	}
	return nil
}

// Handles reports whether any compound in t's inheritance chain handles
// message.
func (e *Engine) Handles(t *types.Type, message *types.Type) bool {
	ci := e.reg.Info(t)
	return ci != nil && len(ci.Handlers(message)) > 0
}
