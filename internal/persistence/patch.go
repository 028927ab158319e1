package persistence

// Apply merges the non-nil fields of the patch into user.
func (p UserPatch) Apply(user *User) {
	if p.Name != nil {
		user.Name = *p.Name
	}
	if p.DateOfBirth != nil {
		user.DateOfBirth = *p.DateOfBirth
	}
	if p.Sex != nil {
		user.Sex = *p.Sex
	}
	if p.Phone != nil {
		user.Phone = *p.Phone
	}
	if p.PasswordHash != nil {
		user.PasswordHash = *p.PasswordHash
	}
	if p.Role != nil {
		user.Role = *p.Role
	}
}

// Apply merges the non-nil fields of the patch into room.
func (p RoomPatch) Apply(room *Room) {
	if p.Number != nil {
		room.Number = *p.Number
	}
	if p.Campus != nil {
		room.Campus = *p.Campus
	}
	if p.AreaM2 != nil {
		room.AreaM2 = *p.AreaM2
	}
	if p.Equipment != nil {
		room.Equipment = *p.Equipment
	}
	if p.Capacity != nil {
		room.Capacity = *p.Capacity
	}
	if p.Description != nil {
		room.Description = *p.Description
	}
	if p.Rules != nil {
		room.Rules = *p.Rules
	}
	if p.Status != nil {
		room.Status = *p.Status
	}
}

// Apply merges the non-nil fields of the patch into booking.
func (p BookingPatch) Apply(booking *Booking) {
	if p.Reason != nil {
		booking.Reason = *p.Reason
	}
	if p.Status != nil {
		booking.Status = *p.Status
	}
	if p.RejectionReason != nil {
		booking.RejectionReason = *p.RejectionReason
	}
	if p.DecidedBy != nil {
		booking.DecidedBy = *p.DecidedBy
	}
	if p.DecidedAt != nil {
		at := *p.DecidedAt
		booking.DecidedAt = &at
	}
}

// Apply merges the non-nil fields of the patch into slot.
func (p SlotPatch) Apply(slot *ScheduleSlot) {
	if p.Start != nil {
		slot.Start = *p.Start
	}
	if p.End != nil {
		slot.End = *p.End
	}
}

// Clone returns a copy of the booking that shares no memory with b.
func (b Booking) Clone() Booking {
	if b.DecidedAt != nil {
		at := *b.DecidedAt
		b.DecidedAt = &at
	}
	return b
}

// SameSlot reports whether both bookings target the same room, date and slot.
func (b Booking) SameSlot(other Booking) bool {
	return b.RoomCode == other.RoomCode && b.Date == other.Date && b.Slot == other.Slot
}
