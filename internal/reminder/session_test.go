package reminder

import "testing"

func TestSessionKey(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		session string
		creator string
		unique  bool
		want    string
	}{
		{name: "shared", session: "12345", creator: "99", unique: false, want: "12345"},
		{name: "isolated", session: "12345", creator: "99", unique: true, want: "12345_99"},
		{name: "already suffixed", session: "12345_99", creator: "99", unique: true, want: "12345_99"},
		{name: "no creator", session: "12345", creator: "", unique: true, want: "12345"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := SessionKey(tt.session, tt.creator, tt.unique); got != tt.want {
				t.Fatalf("SessionKey = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitSessionKey(t *testing.T) {
	t.Parallel()
	s, c := SplitSessionKey("12345_99")
	if s != "12345" || c != "99" {
		t.Fatalf("SplitSessionKey = %q, %q", s, c)
	}
	s, c = SplitSessionKey("12345")
	if s != "12345" || c != "" {
		t.Fatalf("SplitSessionKey plain = %q, %q", s, c)
	}
}

func TestDescriptionMatrix(t *testing.T) {
	t.Parallel()
	tests := []struct {
		rt   RepeatType
		ht   HolidayType
		want string
	}{
		{RepeatNone, HolidayNone, "once"},
		{RepeatDaily, HolidayNone, "every day"},
		{RepeatDaily, HolidayWorkday, "every day, workdays only"},
		{RepeatWeekly, HolidayHoliday, "every week, holidays only"},
		{RepeatMonthly, HolidayNone, "every month"},
		{RepeatYearly, HolidayWorkday, "every year, workdays only"},
	}
	for _, tt := range tests {
		if got := Description(tt.rt, tt.ht); got != tt.want {
			t.Errorf("Description(%s,%s) = %q, want %q", tt.rt, tt.ht, got, tt.want)
		}
	}
}
