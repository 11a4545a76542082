package appointments

import (
	"sort"
	"time"
)

// GetByID returns a copy of one appointment.
func (m *Manager) GetByID(id string) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a.Clone(), nil
}

// ListByPatient returns the patient's appointments, newest first.
func (m *Manager) ListByPatient(patientID string) []*Appointment {
	return m.collect(func(a *Appointment) bool {
		return a.PatientID == patientID
	})
}

// ListByDoctor returns the doctor's appointments, newest first.
func (m *Manager) ListByDoctor(doctorID string) []*Appointment {
	return m.collect(func(a *Appointment) bool {
		return a.DoctorID == doctorID
	})
}

// PendingForDoctor returns the doctor's requests awaiting a decision.
func (m *Manager) PendingForDoctor(doctorID string) []*Appointment {
	return m.collect(func(a *Appointment) bool {
		return a.DoctorID == doctorID &&
			(a.Status == StatusRequested || a.Status == StatusPendingReview)
	})
}

// TodaysScheduleForDoctor returns confirmed appointments whose slot falls on
// the given day.
func (m *Manager) TodaysScheduleForDoctor(doctorID string, day time.Time) []*Appointment {
	date := day.Format("2006-01-02")
	appts := m.collect(func(a *Appointment) bool {
		return a.DoctorID == doctorID &&
			(a.Status == StatusAccepted || a.Status == StatusRescheduleAccepted) &&
			a.ConfirmedSlot != nil && a.ConfirmedSlot.Date == date
	})
	sort.Slice(appts, func(i, j int) bool {
		return appts[i].ConfirmedSlot.Time < appts[j].ConfirmedSlot.Time
	})
	return appts
}

// UpcomingForPatient returns the patient's confirmed future appointments,
// soonest first.
func (m *Manager) UpcomingForPatient(patientID string, now time.Time) []*Appointment {
	appts := m.collect(func(a *Appointment) bool {
		if a.PatientID != patientID || a.ConfirmedSlot == nil {
			return false
		}
		if a.Status != StatusAccepted && a.Status != StatusRescheduleAccepted {
			return false
		}
		when, err := a.ConfirmedSlot.When(time.UTC)
		return err == nil && when.After(now)
	})
	sort.Slice(appts, func(i, j int) bool {
		wi, _ := appts[i].ConfirmedSlot.When(time.UTC)
		wj, _ := appts[j].ConfirmedSlot.When(time.UTC)
		return wi.Before(wj)
	})
	return appts
}

// StatusHistogram counts appointments per status across the collection.
func (m *Manager) StatusHistogram() map[Status]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	hist := make(map[Status]int)
	for _, a := range m.appts {
		hist[a.Status]++
	}
	return hist
}

func (m *Manager) collect(match func(*Appointment) bool) []*Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Appointment
	for _, a := range m.appts {
		if match(a) {
			out = append(out, a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
