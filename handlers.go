package main

import "time"

// dispatch executes one parsed command against the store and writes its
// response through c. It returns an error only for a write failure on the
// connection; protocol-level outcomes (STORED, NOT_FOUND, ...) are always
// written successfully and never themselves treated as handler errors.
func dispatch(st *Store, stats *Stats, clock Clock, c *codec, cmd *command) error {
	switch cmd.kind {
	case kindStorage:
		return dispatchStorage(st, stats, clock, c, cmd)
	case kindGet:
		return dispatchGet(st, stats, c, cmd)
	case kindDelete:
		return dispatchDelete(st, stats, c, cmd)
	case kindVersion:
		return c.writeVersion(version)
	default:
		return c.writeError()
	}
}

func dispatchStorage(st *Store, stats *Stats, clock Clock, c *codec, cmd *command) error {
	var result outcome

	switch cmd.verb {
	case "set":
		stats.incr(opSet)
		result = st.Set(cmd.key, cmd.data, cmd.flags, expiryFrom(clock, cmd.exptime))
	case "add":
		stats.incr(opAdd)
		result = st.Add(cmd.key, cmd.data, cmd.flags, expiryFrom(clock, cmd.exptime))
	case "replace":
		stats.incr(opReplace)
		result = st.Replace(cmd.key, cmd.data, cmd.flags, expiryFrom(clock, cmd.exptime))
	case "append":
		stats.incr(opAppend)
		result = st.Append(cmd.key, cmd.data)
	case "prepend":
		stats.incr(opPrepend)
		result = st.Prepend(cmd.key, cmd.data)
	default:
		return c.writeError()
	}

	stats.addBytesRead(uint64(len(cmd.data)))

	if cmd.noreply {
		return nil
	}
	return c.writeStored(result)
}

func dispatchGet(st *Store, stats *Stats, c *codec, cmd *command) error {
	stats.incr(opGet)
	for _, key := range cmd.keys {
		value, flags, _, ok := st.Get(key)
		if !ok {
			continue
		}
		stats.addBytesWritten(uint64(len(value)))
		if err := c.writeValue(key, flags, value); err != nil {
			return err
		}
	}
	return c.writeEnd()
}

func dispatchDelete(st *Store, stats *Stats, c *codec, cmd *command) error {
	stats.incr(opDelete)
	removed := st.Delete(cmd.key)

	if cmd.noreply {
		return nil
	}
	if removed {
		return c.writeDeleted()
	}
	return c.writeNotFound()
}

// expiryFrom converts a client-supplied exptime into an absolute
// expiration instant. 0 means never expires. A value already past
// 30 days in seconds is a Unix timestamp rather than a relative offset,
// matching this dialect's real-world convention. A non-positive value
// after that distinction (i.e. a Unix timestamp already in the past)
// expires the entry immediately.
func expiryFrom(clock Clock, exptime int64) time.Time {
	const thirtyDays = 30 * 24 * 60 * 60

	if exptime == 0 {
		return time.Time{}
	}
	if exptime < 0 {
		return clock.Now().Add(-time.Second)
	}
	if exptime > thirtyDays {
		return time.Unix(exptime, 0)
	}
	return clock.Now().Add(time.Duration(exptime) * time.Second)
}
