package testfixtures

import (
	"time"

	"github.com/cmc-edu/room-booking/internal/application"
	"github.com/cmc-edu/room-booking/internal/persistence"
)

var referenceTime = time.Date(2025, time.June, 11, 8, 0, 0, 0, time.FixedZone("ICT", 7*60*60))

// ReferenceTime is the baseline instant used by fixtures: the morning of the
// booking recorded in the default dataset.
func ReferenceTime() time.Time {
	return referenceTime
}

// Emails of accounts present in the default dataset.
const (
	AdminEmail    = "admin@cmc.edu.vn"
	StaffEmail    = "pctsv@cmc.edu.vn"
	SecurityEmail = "security@cmc.edu.vn"
	TeacherEmail  = "teacher1@st.cmc.edu.vn"
	StudentEmail  = "BIT230372@st.cmc.edu.vn"
	OtherStudent  = "BIT230101@st.cmc.edu.vn"

	// SeedPassword is the plaintext password of every default account.
	SeedPassword = "123456"
)

func AdminPrincipal() application.Principal {
	return application.Principal{Email: AdminEmail, Code: "admin", Name: "Quản trị viên hệ thống", Role: persistence.RoleAdmin}
}

func StaffPrincipal() application.Principal {
	return application.Principal{Email: StaffEmail, Code: "pctsv", Name: "Phòng Công tác Sinh viên", Role: persistence.RolePCTSV}
}

func TeacherPrincipal() application.Principal {
	return application.Principal{Email: TeacherEmail, Code: "GV001", Name: "TS. Trần Thị B", Role: persistence.RoleTeacher}
}

func StudentPrincipal() application.Principal {
	return application.Principal{Email: StudentEmail, Code: "BIT230372", Name: "Nguyễn Thị Tâm", Role: persistence.RoleStudent}
}

// RoomInput returns a valid room input for code on campus VPC9.
func RoomInput(code string) application.RoomInput {
	return application.RoomInput{
		Code:      code,
		Number:    901,
		Campus:    "VPC9",
		AreaM2:    40,
		Equipment: "['Máy chiếu', 'Wifi']",
		Capacity:  40,
		Status:    persistence.RoomAvailable,
	}
}
