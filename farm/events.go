package farm

import (
	"math/big"
)

func (f *Farm) AddListener(l EventListener) {
	f.lsnLock.Lock()
	defer f.lsnLock.Unlock()

	f.listeners = append(f.listeners, l)
}

func (f *Farm) RemoveListener(l EventListener) {
	f.lsnLock.Lock()
	defer f.lsnLock.Unlock()

	for i, lsn := range f.listeners {
		if lsn == l {
			last := len(f.listeners) - 1
			f.listeners[i] = f.listeners[last]
			f.listeners[last] = nil
			f.listeners = f.listeners[:last]
			return
		}
	}
}

func (f *Farm) fireRewardPaid(account string, amount *big.Int) {
	f.lsnLock.Lock()
	lsns := make([]EventListener, len(f.listeners))
	copy(lsns, f.listeners)
	f.lsnLock.Unlock()

	for _, lsn := range lsns {
		lsn.OnRewardPaid(account, new(big.Int).Set(amount))
	}
}
