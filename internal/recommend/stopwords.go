// ABOUTME: Per-language stopword sets for keyword extraction
// ABOUTME: Only words of three or more letters matter since shorter tokens are dropped

package recommend

import "strings"

var stopwords = map[string]map[string]struct{}{
	"en": set(`the and for are but not you all any can had her was one our out has him his how its may new now
		old see two way who did get let say she too use that with have this will your from they know want been
		good much some time very when come here just like long make many more only over such take than them well
		were what about after again also back because before being both could down each even every first into most
		other should still their there these those through under where which while would episode episodes podcast
		show weekly today`),
	"es": set(`que los las del por una con para como más pero sus este esta entre cuando muy sin sobre también
		hasta hay donde quien desde todo nos durante todos uno les contra otros ese eso ante ellos esto antes algunos
		unos otro otras otra tanto esa estos mucho quienes nada muchos cual poco ella estar estas algunas algo nosotros
		episodio podcast`),
	"fr": set(`les des une que qui dans pour pas sur par plus est son ses aux avec mais ont été cette comme tout
		nous vous leur elle ils sont aussi fait peut entre sans sous deux même faire bien très encore donc alors
		épisode podcast`),
	"de": set(`der die das und ist nicht ein eine einen dem den des sich mit auf für von als auch bei aus nach wie
		wird oder aber sind noch nur war wir ihr sie hat vom zum zur über unter durch diese dieser dieses werden kann
		ich ganz mehr schon wenn folge podcast`),
	"it": set(`che per non una con del della dei delle gli nel nella sono come più anche alla alle suo sua loro
		questo questa quando molto tutto tutti essere stato dove fare ancora degli dal dalla sul sulla episodio podcast`),
	"pt": set(`que não uma para com por mais como mas dos das foi ele ela seu sua quando muito também pelo pela
		até isso entre depois sem mesmo aos ter seus suas nem meu esse essa num numa pelos elas havia seja qual
		nós lhe deles essas esses episódio podcast`),
	"nl": set(`het een van dat die niet en zijn voor met als ook maar aan bij nog wel naar dan wat was werd zou
		door over heeft hebben kan zich deze dit uit tot hun ons geen meer veel aflevering podcast`),
	"sv": set(`och det att som för med den har inte till var ett men han hon sig jag vid kan från ska när
		hade nu vara också efter upp hur eller bara mot över alla under där detta dessa avsnitt podcast`),
}

func set(words string) map[string]struct{} {
	fields := strings.Fields(words)
	s := make(map[string]struct{}, len(fields))
	for _, w := range fields {
		s[w] = struct{}{}
	}
	return s
}
