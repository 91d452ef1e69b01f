package validate

import "github.com/go-playground/validator/v10"

// Faculty — факультет со списком кафедр.
type Faculty struct {
	Name        string
	Departments []Department
}

// Department — кафедра и доступные на ней направления.
type Department struct {
	Name          string
	CourseOptions []string
}

// Faculties — справочник программ, доступных при регистрации.
var Faculties = []Faculty{
	{
		Name: "Computer Science",
		Departments: []Department{
			{Name: "Software Engineering", CourseOptions: []string{"Web Development", "Mobile Development", "Data Science"}},
			{Name: "Cybersecurity", CourseOptions: []string{"Network Security", "Ethical Hacking"}},
		},
	},
	{
		Name: "Engineering",
		Departments: []Department{
			{Name: "Mechanical Engineering", CourseOptions: []string{"Thermodynamics", "Robotics"}},
			{Name: "Electrical Engineering", CourseOptions: []string{"Circuit Design", "Power Systems"}},
		},
	},
}

// Programme — выбранные факультет, кафедра и направление.
// Помимо существования каждого значения проверяется их взаимная согласованность.
type Programme struct {
	Faculty      string `json:"faculty" validate:"required,faculty"`
	Department   string `json:"department" validate:"required,department"`
	CourseOption string `json:"courseOption" validate:"required,course_option"`
}

func findFaculty(name string) (Faculty, bool) {
	for _, f := range Faculties {
		if f.Name == name {
			return f, true
		}
	}

	return Faculty{}, false
}

func findDepartment(name string) (Department, bool) {
	for _, f := range Faculties {
		for _, d := range f.Departments {
			if d.Name == name {
				return d, true
			}
		}
	}

	return Department{}, false
}

func courseOptionExists(name string) bool {
	for _, f := range Faculties {
		for _, d := range f.Departments {
			for _, c := range d.CourseOptions {
				if c == name {
					return true
				}
			}
		}
	}

	return false
}

func programmeValidation(sl validator.StructLevel) {
	p := sl.Current().Interface().(Programme)

	f, ok := findFaculty(p.Faculty)
	if !ok {
		return
	}

	var dep *Department
	for i := range f.Departments {
		if f.Departments[i].Name == p.Department {
			dep = &f.Departments[i]
			break
		}
	}
	if dep == nil {
		if _, known := findDepartment(p.Department); known {
			sl.ReportError(p.Department, "department", "Department", "programme", "")
		}
		return
	}

	for _, c := range dep.CourseOptions {
		if c == p.CourseOption {
			return
		}
	}
	if courseOptionExists(p.CourseOption) {
		sl.ReportError(p.CourseOption, "courseOption", "CourseOption", "programme", "")
	}
}
